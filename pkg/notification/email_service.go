// Package notification sends requester-facing emails through AWS SES.
// Delivery failures are reported to the caller, which logs and moves on:
// email is a side effect and never rolls back a business state change.
package notification

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"campus-dispatch/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// ServiceInterface is the full notification contract: request lifecycle
// emails plus the login/enrollment verification codes.
type ServiceInterface interface {
	SendRequestCreated(ctx context.Context, req *models.Request) error
	SendRequestStatus(ctx context.Context, req *models.Request) error
	SendVerificationCode(ctx context.Context, email, name, code string) error
}

// sesClient is the slice of the SES v2 API we use, extracted so tests can
// substitute a fake.
type sesClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESService sends email through AWS SES v2.
type SESService struct {
	client sesClient
	sender string
}

// NewSESService builds a sender from the default AWS credential chain.
func NewSESService(ctx context.Context, region, sender string) (*SESService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &SESService{client: sesv2.NewFromConfig(cfg), sender: sender}, nil
}

// SendRequestCreated confirms a new delivery request to the requester and
// embeds the pickup QR.
func (s *SESService) SendRequestCreated(ctx context.Context, req *models.Request) error {
	subject := "Your campus delivery request was received"
	body := fmt.Sprintf(
		`<p>Hi %s %s,</p>
<p>Your delivery request from <b>%s</b> to <b>%s</b> was created and is pending assignment.</p>
<p>Present this code at pickup:</p>
<p><img src=%q alt="pickup QR"></p>`,
		req.RequesterName, req.RequesterSurname, req.Origin, req.Destination,
		qrImageURL(req.VerificationCode),
	)
	return s.send(ctx, req.RequesterEmail, subject, body)
}

// SendRequestStatus notifies the requester of a status change. The pickup QR
// is included once a device has been assigned.
func (s *SESService) SendRequestStatus(ctx context.Context, req *models.Request) error {
	subject := fmt.Sprintf("Delivery update: %s", humanStatus(req.Status))
	var b strings.Builder
	fmt.Fprintf(&b, `<p>Hi %s %s,</p>`, req.RequesterName, req.RequesterSurname)
	fmt.Fprintf(&b, `<p>Your delivery from <b>%s</b> to <b>%s</b> is now <b>%s</b>.</p>`,
		req.Origin, req.Destination, humanStatus(req.Status))
	if req.Status == models.RequestStatusAssigned && req.VerificationCode != "" {
		fmt.Fprintf(&b, `<p>Present this code at pickup:</p><p><img src=%q alt="pickup QR"></p>`,
			qrImageURL(req.VerificationCode))
	}
	return s.send(ctx, req.RequesterEmail, subject, b.String())
}

// SendVerificationCode delivers a sign-in or enrollment code.
func (s *SESService) SendVerificationCode(ctx context.Context, email, name, code string) error {
	subject := "Your delivery console verification code"
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your verification code is <b>%s</b>. It expires in 5 minutes.</p>`,
		name, code,
	)
	return s.send(ctx, email, subject, body)
}

func (s *SESService) send(ctx context.Context, to, subject, html string) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.sender),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body:    &types.Body{Html: &types.Content{Data: aws.String(html)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	return nil
}

// qrImageURL delegates QR rendering to QuickChart; no image generation
// happens in-process.
func qrImageURL(data string) string {
	return "https://quickchart.io/qr?text=" + url.QueryEscape(data) + "&size=200&margin=2"
}

// humanStatus turns a status constant into the wording used in emails,
// e.g. "in_progress" -> "IN PROGRESS".
func humanStatus(status string) string {
	return strings.ToUpper(strings.ReplaceAll(status, "_", " "))
}

// LogService is the no-delivery implementation used in mock mode
// (EMAIL_ENABLED=false) and in tests. It records what would have been sent.
type LogService struct{}

// NewLogService creates a sender that only logs.
func NewLogService() *LogService {
	return &LogService{}
}

func (s *LogService) SendRequestCreated(ctx context.Context, req *models.Request) error {
	log.Printf("notification (mock): request %s created, would email %s", req.ID, req.RequesterEmail)
	return nil
}

func (s *LogService) SendRequestStatus(ctx context.Context, req *models.Request) error {
	log.Printf("notification (mock): request %s now %s, would email %s", req.ID, req.Status, req.RequesterEmail)
	return nil
}

func (s *LogService) SendVerificationCode(ctx context.Context, email, name, code string) error {
	log.Printf("notification (mock): would email verification code %s to %s", code, email)
	return nil
}
