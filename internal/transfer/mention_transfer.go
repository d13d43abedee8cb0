package transfer

type ReplyRequest struct {
	Text string `json:"text"`
}
