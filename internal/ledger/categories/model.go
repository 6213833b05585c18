package categories

// Category represents a node in the item category hierarchy used to scope
// account mappings.
type Category struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId"`
}
