package types

// JSONMap is an opaque jsonb payload. The checkout pipeline passes gateway
// confirmation payloads through without interpreting them.
type JSONMap map[string]any

// ProductImage is one catalog image reference with display text.
type ProductImage struct {
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
}
