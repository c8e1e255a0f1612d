package googlebooks

// Volume is a single catalog entry as returned by /volumes/{id}.
type Volume struct {
	ID         string      `json:"id"`
	VolumeInfo *VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo holds the bibliographic fields of a volume.
type VolumeInfo struct {
	Title               string               `json:"title"`
	Subtitle            string               `json:"subtitle"`
	Authors             []string             `json:"authors"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
	PageCount           int                  `json:"pageCount"`
	Categories          []string             `json:"categories"`
	ImageLinks          *ImageLinks          `json:"imageLinks"`
	Language            string               `json:"language"`
}

// IndustryIdentifier is one of a volume's ISBN or other identifiers.
type IndustryIdentifier struct {
	Type       string `json:"type"` // ISBN_10, ISBN_13, ISSN, OTHER
	Identifier string `json:"identifier"`
}

// ImageLinks holds cover image URLs at several sizes.
type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

// SearchResult is a catalog search response.
//
// Raw is the decoded response body, kept so callers can relay it unchanged.
type SearchResult struct {
	TotalItems int
	ItemCount  int
	Raw        map[string]any
}

// ISBN13 returns the volume's ISBN-13, or "" if it has none.
func (v *VolumeInfo) ISBN13() string {
	for _, id := range v.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			return id.Identifier
		}
	}
	return ""
}

// Thumbnail returns the thumbnail cover URL, or "" if there is none.
func (v *VolumeInfo) Thumbnail() string {
	if v.ImageLinks == nil {
		return ""
	}
	return v.ImageLinks.Thumbnail
}
