package dto

// PrismicWebhook is the body Prismic posts on publish ("api-update") or from the
// settings page test button ("test-trigger").
// Slugs 는 Prismic 이 보내지 않는 필드로, 관리자가 slug 를 직접 지정할 때 쓴다.
type PrismicWebhook struct {
	Type      string   `json:"type"`
	Secret    string   `json:"secret"`
	MasterRef string   `json:"masterRef,omitempty"`
	Domain    string   `json:"domain,omitempty"`
	APIURL    string   `json:"apiUrl,omitempty"`
	Documents []string `json:"documents,omitempty"`
	Slugs     []string `json:"slugs,omitempty"`
}

const (
	WebhookTypeAPIUpdate   = "api-update"
	WebhookTypeTestTrigger = "test-trigger"
)

// RevalidateResponse is returned by POST /api/revalidate
type RevalidateResponse struct {
	Revalidated bool   `json:"revalidated"`
	EventID     string `json:"event_id,omitempty"`
	Message     string `json:"message,omitempty"`
}
