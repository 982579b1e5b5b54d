package altsource

import "encoding/json"

// Article is a news entry in a Source. Identifier is the dedup key within a
// Source; AppID is a cross-reference that is not enforced to exist.
type Article struct {
	Title      string `json:"title"`
	Identifier string `json:"identifier"`
	Caption    string `json:"caption"`
	Date       string `json:"date"`
	TintColor  string `json:"tintColor,omitempty"`
	ImageURL   string `json:"imageURL,omitempty"`
	Notify     *bool  `json:"notify,omitempty"`
	URL        string `json:"url,omitempty"`
	AppID      string `json:"appID,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type articleAlias Article

var articleKeys = jsonKeys(Article{})

// UnmarshalJSON decodes an Article, capturing unknown fields in Extra.
func (a *Article) UnmarshalJSON(data []byte) error {
	var aa articleAlias
	if err := json.Unmarshal(data, &aa); err != nil {
		return err
	}
	aa.Extra = extraFields(data, articleKeys)
	*a = Article(aa)
	return nil
}

// MarshalJSON encodes an Article, splicing Extra back in.
func (a Article) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(articleAlias(a))
	if err != nil {
		return nil, err
	}
	return appendExtra(b, a.Extra)
}

// MissingKeys returns the required keys absent from the Article.
func (a *Article) MissingKeys() []string {
	var missing []string
	if a.Title == "" {
		missing = append(missing, "title")
	}
	if a.Identifier == "" {
		missing = append(missing, "identifier")
	}
	if a.Caption == "" {
		missing = append(missing, "caption")
	}
	if a.Date == "" {
		missing = append(missing, "date")
	}
	return missing
}

// IsValid reports whether the Article contains all required information.
func (a *Article) IsValid() bool {
	return len(a.MissingKeys()) == 0
}

// Clone returns a deep copy of the Article.
func (a *Article) Clone() *Article {
	if a == nil {
		return nil
	}
	out := *a
	out.Extra = cloneExtra(a.Extra)
	if a.Notify != nil {
		n := *a.Notify
		out.Notify = &n
	}
	return &out
}
