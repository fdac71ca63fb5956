package mailer

import (
	"fmt"
	"strings"
)

// PasswordResetTemplate is the template name the credential service enqueues
// for recovery emails.
const PasswordResetTemplate = "password_reset"

// Render turns a templated job into subject and text bodies. Jobs without a
// template pass through unchanged.
func Render(job *EmailJob) (subject, text string, err error) {
	switch strings.ToLower(job.Template) {
	case "":
		return job.Subject, job.Text, nil
	case PasswordResetTemplate:
		username, _ := job.Data["Username"].(string)
		link, _ := job.Data["ResetURL"].(string)
		expires, _ := job.Data["ExpiresIn"].(string)
		if link == "" {
			return "", "", fmt.Errorf("password_reset template requires ResetURL")
		}
		var b strings.Builder
		if username != "" {
			fmt.Fprintf(&b, "Hi %s,\n\n", username)
		}
		b.WriteString("We received a request to reset your Shoplytics password.\n\n")
		fmt.Fprintf(&b, "Reset it here: %s\n\n", link)
		if expires != "" {
			fmt.Fprintf(&b, "The link expires in %s.\n\n", expires)
		}
		b.WriteString("If you did not request this, you can ignore this message.\n")
		return "Reset your password", b.String(), nil
	default:
		return "", "", fmt.Errorf("unknown email template: %s", job.Template)
	}
}
