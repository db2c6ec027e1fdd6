package service

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"escaperoom/internal/models"
)

// EmailService sends game-completion summaries to a configured staff inbox
// via Amazon SES.
type EmailService struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	toEmail   string
	enabled   bool
}

// NewEmailService creates a new email service. When the from or to address
// is not configured the service is created disabled and every send becomes a
// logged no-op.
func NewEmailService(awsRegion, fromEmail, fromName, toEmail string) (*EmailService, error) {
	if fromEmail == "" || toEmail == "" {
		log.Println("Email service disabled: NOTIFY_FROM_EMAIL or NOTIFY_TO_EMAIL not configured")
		return &EmailService{enabled: false}, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, to=%s, region=%s", fromEmail, toEmail, awsRegion)
	return &EmailService{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		toEmail:   toEmail,
		enabled:   true,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// GameFinished sends a summary of a finalized game to the staff inbox.
func (s *EmailService) GameFinished(userID string, result *models.Result) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): game finished by user %s", userID)
		return nil
	}

	subject := "Escape room game finished"
	elapsed := result.ElapsedSeconds()

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body>
	<h2>A player just finished an escape room game</h2>
	<ul>
		<li>Player: %s</li>
		<li>Challenges cleared: %d</li>
		<li>Wrong attempts: %d</li>
		<li>Time played: %d minutes %d seconds</li>
		<li>Started: %s</li>
		<li>Finished: %s</li>
	</ul>
</body>
</html>
`, userID, result.PuzzlesCleared, result.FailuresTotal, elapsed/60, elapsed%60,
		result.StartedAt.Format("2006-01-02 15:04:05"), result.EndedAt.Format("2006-01-02 15:04:05"))

	textBody := fmt.Sprintf(`A player just finished an escape room game.

Player: %s
Challenges cleared: %d
Wrong attempts: %d
Time played: %d minutes %d seconds
Started: %s
Finished: %s
`, userID, result.PuzzlesCleared, result.FailuresTotal, elapsed/60, elapsed%60,
		result.StartedAt.Format("2006-01-02 15:04:05"), result.EndedAt.Format("2006-01-02 15:04:05"))

	return s.sendEmail(context.Background(), s.toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
