package catalog

// Item is a single catalog listing as returned by the search endpoint.
// Fields beyond these exist in the response but are not consumed.
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       *int64 `json:"price"` // nil when the item is not for sale
	CreatorName string `json:"creatorName"`
}

// searchResponse is the shape of one page of search results. A nil
// NextPageCursor means the service has no further pages for the keyword.
type searchResponse struct {
	Data           []Item  `json:"data"`
	NextPageCursor *string `json:"nextPageCursor"`
}

// thumbnailResponse is the shape of a thumbnail lookup result. The data list
// holds zero or one entry for a single asset id request.
type thumbnailResponse struct {
	Data []struct {
		TargetID int64  `json:"targetId"`
		State    string `json:"state"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}
