package services

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/resolvehq/resolve/internal/models"
	"github.com/resolvehq/resolve/internal/utils"
)

// Notifier alerts the operations inbox about complaint activity.
// Delivery is best-effort: failures are logged and dropped.
type Notifier interface {
	NotifyNewComplaint(c *models.Complaint)
	NotifyStatusUpdate(c *models.Complaint, oldStatus models.ComplaintStatus)
}

type emailNotifier struct {
	client     *sendgrid.Client
	fromEmail  string
	adminEmail string
	appName    string
}

func NewEmailNotifier(apiKey, fromEmail, adminEmail, appName string) Notifier {
	return &emailNotifier{
		client:     sendgrid.NewSendClient(apiKey),
		fromEmail:  fromEmail,
		adminEmail: adminEmail,
		appName:    appName,
	}
}

func (n *emailNotifier) NotifyNewComplaint(c *models.Complaint) {
	from := mail.NewEmail(n.appName, n.fromEmail)
	to := mail.NewEmail("Admin", n.adminEmail)
	subject := fmt.Sprintf("New Complaint: %s", c.Title)

	plain := fmt.Sprintf(
		"Title: %s\nCategory: %s\nPriority: %s\n\n%s",
		c.Title, c.Category, c.Priority, c.Description,
	)
	html := fmt.Sprintf(
		"<h2>New Complaint Submitted</h2><h3>%s</h3><p><strong>Category:</strong> %s</p><p><strong>Priority:</strong> %s</p><p>%s</p>",
		c.Title, c.Category, c.Priority, c.Description,
	)

	message := mail.NewSingleEmail(from, subject, to, plain, html)
	resp, err := n.client.Send(message)
	if err != nil {
		utils.Logger.WithError(err).Error("failed to send new-complaint notification email")
		return
	}
	if resp.StatusCode >= 400 {
		utils.Logger.Errorf("new-complaint notification email rejected with status %d", resp.StatusCode)
	}
}

func (n *emailNotifier) NotifyStatusUpdate(c *models.Complaint, oldStatus models.ComplaintStatus) {
	from := mail.NewEmail(n.appName, n.fromEmail)
	to := mail.NewEmail("Admin", n.adminEmail)
	subject := fmt.Sprintf("Complaint Status Updated: %s", c.Title)

	plain := fmt.Sprintf(
		"Title: %s\nStatus: %s -> %s\nCategory: %s\nPriority: %s",
		c.Title, oldStatus, c.Status, c.Category, c.Priority,
	)
	html := fmt.Sprintf(
		"<h2>Complaint Status Updated</h2><h3>%s</h3><p><strong>Status:</strong> %s &rarr; %s</p><p><strong>Category:</strong> %s</p><p><strong>Priority:</strong> %s</p>",
		c.Title, oldStatus, c.Status, c.Category, c.Priority,
	)

	message := mail.NewSingleEmail(from, subject, to, plain, html)
	resp, err := n.client.Send(message)
	if err != nil {
		utils.Logger.WithError(err).Error("failed to send status-update notification email")
		return
	}
	if resp.StatusCode >= 400 {
		utils.Logger.Errorf("status-update notification email rejected with status %d", resp.StatusCode)
	}
}
