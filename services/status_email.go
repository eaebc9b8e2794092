package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
	"github.com/aIcoder504/apbmt-2025-conference-system/models"
	"github.com/aIcoder504/apbmt-2025-conference-system/utils"
)

// MailTransport is the SMTP side of status emails; *config.Mailer satisfies it.
type MailTransport interface {
	SendMail(to []string, subject, html, text string) error
}

var plainTagStripper = strings.NewReplacer("<strong>", "", "</strong>", "")

// StatusEmail is a rendered status notification.
type StatusEmail struct {
	Subject string
	HTML    string
	Text    string
}

// RenderStatusEmail builds the subject and bodies for one status change.
func RenderStatusEmail(conf config.ConferenceSettings, to Recipient, job NotificationJob) StatusEmail {
	subject := fmt.Sprintf("Abstract Review %s - %s", utils.StatusHeadline(job.NewStatus), job.SubmissionNumber)

	greeting := "Dear Author,"
	if name := strings.TrimSpace(to.FullName); name != "" {
		greeting = fmt.Sprintf("Dear %s,", name)
	}

	paragraphs := []string{greeting, statusMessage(job.NewStatus, conf.Name)}
	comments := ""
	if job.Comments != nil {
		comments = strings.TrimSpace(*job.Comments)
	}

	fields := []emailField{
		{Label: "Submission number", Value: job.SubmissionNumber},
		{Label: "Title", Value: job.Title},
		{Label: "Presenting author", Value: job.Author},
		{Label: "Status", Value: utils.StatusDisplayName(job.NewStatus)},
		{Label: "Reviewer comments", Value: comments},
		{Label: "Review date", Value: utils.FormatReviewDate(job.ChangedAt)},
	}

	footer := "This is an automated message from the abstract submission system."
	if conf.Name != "" {
		footer = fmt.Sprintf("%s abstract submission system. This is an automated message.", conf.Name)
	}

	layout := emailLayout{
		Heading:    subject,
		Paragraphs: paragraphs,
		Fields:     fields,
		ButtonText: "View submission",
		ButtonURL:  conf.Website,
		Footer:     footer,
	}

	var text strings.Builder
	text.WriteString(greeting + "\n\n" + plainTagStripper.Replace(paragraphs[1]) + "\n\n")
	for _, f := range fields {
		if f.Value != "" {
			fmt.Fprintf(&text, "%s: %s\n", f.Label, f.Value)
		}
	}

	return StatusEmail{Subject: subject, HTML: layout.render(), Text: text.String()}
}

func statusMessage(status, conference string) string {
	event := "the conference"
	if conference != "" {
		event = conference
	}
	switch status {
	case models.StatusApproved:
		return fmt.Sprintf("We are pleased to inform you that your abstract has been <strong>approved</strong> for presentation at %s.", event)
	case models.StatusRejected:
		return fmt.Sprintf("Thank you for your submission to %s. After careful review, your abstract was <strong>not accepted</strong>.", event)
	case models.StatusFinalSubmitted:
		return "Your final submission has been received and recorded."
	default:
		return fmt.Sprintf("The review status of your abstract is now <strong>%s</strong>.", utils.StatusDisplayName(status))
	}
}

// MailStatusSender renders status emails and sends them over SMTP.
type MailStatusSender struct {
	transport  MailTransport
	conference config.ConferenceSettings
}

func NewMailStatusSender(transport MailTransport, conference config.ConferenceSettings) *MailStatusSender {
	return &MailStatusSender{transport: transport, conference: conference}
}

func (s *MailStatusSender) SendStatusEmail(ctx context.Context, to Recipient, job NotificationJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !utils.ValidateEmail(utils.SanitizeInput(to.Email)) {
		return fmt.Errorf("invalid recipient address %q", to.Email)
	}
	msg := RenderStatusEmail(s.conference, to, job)
	return s.transport.SendMail([]string{utils.SanitizeInput(to.Email)}, msg.Subject, msg.HTML, msg.Text)
}
