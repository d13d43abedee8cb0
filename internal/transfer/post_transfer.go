package transfer

import (
	"time"

	v "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	ModeNow      = "now"
	ModeSchedule = "schedule"
	ModeDraft    = "draft"
)

type PostCreation struct {
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Platforms    []string   `json:"platforms"`
	Mode         string     `json:"mode"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	MediaIDs     []int64    `json:"media_ids,omitempty"`
}

func (p PostCreation) Validate() error {
	return v.ValidateStruct(&p,
		v.Field(&p.Title, v.Length(0, 200)),
		v.Field(&p.Content, v.Required, v.Length(1, 63206)),
		v.Field(&p.Platforms, v.Required.Error("select at least one platform"), v.Each(v.Required)),
		v.Field(&p.Mode, v.Required, v.In(ModeNow, ModeSchedule, ModeDraft)),
		v.Field(&p.ScheduledFor, v.When(p.Mode == ModeSchedule, v.Required.Error("scheduled_for is required when scheduling"))),
		v.Field(&p.MediaIDs, v.Each(v.Min(int64(1)))),
	)
}

// PostUpdate replaces the editable fields of a draft or scheduled post.
// Target platforms cannot be changed.
type PostUpdate struct {
	Title        *string    `json:"title,omitempty"`
	Content      *string    `json:"content,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

func (p PostUpdate) Validate() error {
	return v.ValidateStruct(&p,
		v.Field(&p.Title, v.NilOrNotEmpty, v.Length(0, 200)),
		v.Field(&p.Content, v.NilOrNotEmpty, v.Length(1, 63206)),
	)
}
