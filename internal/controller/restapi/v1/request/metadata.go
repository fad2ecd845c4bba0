package request

type Metadata struct {
	Tags    []string `json:"tags"`
	Palette []string `json:"palette"`
}
