package domain

// Ajax actions routed by POST /gallery/ajax
const (
	ActionLoadMore = "io_load_more"
	ActionSearch   = "io_search"
	ActionUpload   = "io_upload"
)

// LoadMoreResponse data of a successful io_load_more
type LoadMoreResponse struct {
	HTML     string `json:"html"`
	HasMore  bool   `json:"has_more"`
	NextPage *int   `json:"next_page"`
	MaxPages int    `json:"max_pages"`
	Count    int    `json:"count"`
}

// SearchResponse data of a successful io_search; empty HTML means zero matches
type SearchResponse struct {
	HTML  string `json:"html"`
	Count int    `json:"count"`
}

// UploadResponse data of a successful io_upload; every field is server-authoritative
type UploadResponse struct {
	Src         string   `json:"src"`
	Download    string   `json:"download"`
	Title       string   `json:"title"`
	Caption     string   `json:"caption"`
	Description string   `json:"description"`
	Alt         string   `json:"alt"`
	Thumb       string   `json:"thumb"`
	Terms       []string `json:"terms"`
	ID          int64    `json:"id"`
	Pending     bool     `json:"pending"`
}
