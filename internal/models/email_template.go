package models

// EmailTemplate defines the structure for notification email templates stored in the DB.
// TemplateID is the notification event kind, e.g. "match_found".
type EmailTemplate struct {
	Base       `bson:",inline"`
	TemplateID string `bson:"template_id" json:"template_id"`
	Locale     string `bson:"locale" json:"locale"`   // e.g., "en-US", "es-ES"
	Subject    string `bson:"subject" json:"subject"` // Subject template
	Body       string `bson:"body" json:"body"`       // Plain text body template
}
