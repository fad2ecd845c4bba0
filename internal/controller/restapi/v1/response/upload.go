package response

type Upload struct {
	ID string `json:"id" example:"7d444840-9dc0-11d1-b245-5ffdce74fad2"`
}
