package transfer

import (
	v "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/maheshrc27/socialdesk/internal/models"
)

type PlatformSettingsUpdate struct {
	SyncFrequency *string               `json:"sync_frequency,omitempty"`
	Notifications *NotificationSettings `json:"notifications,omitempty"`
	AccountName   *string               `json:"account_name,omitempty"`
}

type NotificationSettings struct {
	Mentions *bool `json:"mentions,omitempty"`
	Messages *bool `json:"messages,omitempty"`
}

func (p PlatformSettingsUpdate) Validate() error {
	return v.ValidateStruct(&p,
		v.Field(&p.SyncFrequency, v.NilOrNotEmpty, v.In(models.SyncRealtime, models.SyncHourly, models.SyncDaily)),
		v.Field(&p.AccountName, v.NilOrNotEmpty, v.Length(1, 120)),
	)
}

type SelfHostedCredentials struct {
	SiteURL             string `json:"site_url"`
	Username            string `json:"username"`
	ApplicationPassword string `json:"application_password"`
}

func (c SelfHostedCredentials) Validate() error {
	return v.ValidateStruct(&c,
		v.Field(&c.SiteURL, v.Required, is.URL),
		v.Field(&c.Username, v.Required),
		v.Field(&c.ApplicationPassword, v.Required),
	)
}

// SDKConnectRequest carries the result of a browser side SDK login.
type SDKConnectRequest struct {
	AccessToken string `json:"access_token"`
	Code        string `json:"code"`
}

func (r SDKConnectRequest) Validate() error {
	return v.ValidateStruct(&r,
		v.Field(&r.AccessToken, v.Required.When(r.Code == "").Error("access_token or code is required")),
	)
}

type CallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

func (r CallbackRequest) Validate() error {
	return v.ValidateStruct(&r,
		v.Field(&r.Code, v.Required),
	)
}
