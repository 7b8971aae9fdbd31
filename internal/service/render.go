// internal/service/render.go
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	tokenRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)
	hrefRe  = regexp.MustCompile(`href="([^"]+)"`)
)

// RenderBody substitutes {{field}} tokens with submission values. Tokens with
// no matching field are left literally in place so a malformed template stays
// visible in the delivered mail instead of silently blanking out.
func RenderBody(template string, data map[string]any) string {
	return tokenRe.ReplaceAllStringFunc(template, func(m string) string {
		name := tokenRe.FindStringSubmatch(m)[1]
		v, ok := data[name]
		if !ok || v == nil {
			return m
		}
		return fmt.Sprint(v)
	})
}

// LinkBuilder produces the tracking and unsubscribe URLs embedded in every
// rendered body. Unsubscribe links are HMAC-signed over (campaign, address) so
// they are deterministic but not forgeable.
type LinkBuilder struct {
	baseURL string
	secret  []byte
}

func NewLinkBuilder(baseURL, secret string) *LinkBuilder {
	return &LinkBuilder{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
	}
}

func (b *LinkBuilder) OpenPixelURL(deliveryID string) string {
	return fmt.Sprintf("%s/tracking/open?delivery_id=%s", b.baseURL, url.QueryEscape(deliveryID))
}

func (b *LinkBuilder) ClickURL(deliveryID, target string) string {
	return fmt.Sprintf("%s/tracking/click?delivery_id=%s&url=%s",
		b.baseURL, url.QueryEscape(deliveryID), url.QueryEscape(target))
}

func (b *LinkBuilder) UnsubscribeURL(campaignID int64, email string) string {
	return fmt.Sprintf("%s/unsubscribe?campaign=%d&email=%s&sig=%s",
		b.baseURL, campaignID, url.QueryEscape(email), b.sign(unsubscribeData(campaignID, email)))
}

func (b *LinkBuilder) VerifyUnsubscribe(campaignID int64, email, sig string) bool {
	expected := b.sign(unsubscribeData(campaignID, email))
	return hmac.Equal([]byte(expected), []byte(sig))
}

func unsubscribeData(campaignID int64, email string) string {
	return fmt.Sprintf("%d|%s", campaignID, email)
}

func (b *LinkBuilder) sign(data string) string {
	h := hmac.New(sha256.New, b.secret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Instrument rewrites every link in the body through the click endpoint,
// appends the unsubscribe footer and the open pixel. The footer is added after
// link rewriting so the unsubscribe link itself is never click-wrapped.
func (b *LinkBuilder) Instrument(body, deliveryID string, campaignID int64, email string) string {
	instrumented := hrefRe.ReplaceAllStringFunc(body, func(m string) string {
		target := hrefRe.FindStringSubmatch(m)[1]
		if strings.HasPrefix(target, b.baseURL) {
			return m
		}
		return fmt.Sprintf(`href="%s"`, b.ClickURL(deliveryID, target))
	})

	var sb strings.Builder
	sb.WriteString(instrumented)
	sb.WriteString(fmt.Sprintf(
		`<p style="font-size:12px;color:#888"><a href="%s">Unsubscribe</a></p>`,
		b.UnsubscribeURL(campaignID, email)))
	sb.WriteString(fmt.Sprintf(
		`<img src="%s" width="1" height="1" alt="" style="display:none">`,
		b.OpenPixelURL(deliveryID)))
	return sb.String()
}
