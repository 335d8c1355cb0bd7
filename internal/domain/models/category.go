package models

// CategoryNode is one node of the two-level category tree derived from the
// live folder structure. Only the top level carries children.
type CategoryNode struct {
	Slug     string         `json:"slug"`
	Name     string         `json:"name"`
	Children []CategoryNode `json:"children,omitempty"`
}
