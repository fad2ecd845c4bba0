package dto

type Content struct {
	Data        []byte
	ContentType string
}

type Metadata struct {
	Tags    []string
	Palette []string
}
