package templates

import (
	"time"
)

// Brand carries the links and names shared by every account email.
type Brand struct {
	AppName     string
	CompanyName string
	SupportURL  string
}

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithExpiresIn(dur time.Duration) Option {
	return func(d *EmailData) {
		utc := time.Now().Add(dur).UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04")
	}
}

func newBaseEmailData(b Brand, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:        name,
		Email:       email,
		Type:        typ,
		AppName:     b.AppName,
		CompanyName: b.CompanyName,
		SupportURL:  b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewConfirmEmailData(b Brand, name, email, confirmURL string, opts ...Option) map[string]any {
	d := newBaseEmailData(b, ConfirmEmail, name, email, opts...)
	d.ActionURL = confirmURL
	return ToMap(d)
}

func NewResetPasswordData(b Brand, name, email, resetURL string, opts ...Option) map[string]any {
	d := newBaseEmailData(b, ResetPassword, name, email, opts...)
	d.ActionURL = resetURL
	return ToMap(d)
}
