package ses

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmailAPI struct {
	input *sesv2.SendEmailInput
}

func (f *fakeEmailAPI) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestMailer_Send(t *testing.T) {
	api := &fakeEmailAPI{}
	mailer := &Mailer{api: api, sender: "noreply@example.com"}

	require.NoError(t, mailer.Send(context.Background(), "bob@example.com", "Reminder", "See you at 9"))
	assert.Equal(t, "noreply@example.com", aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"bob@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Reminder", aws.ToString(api.input.Content.Simple.Subject.Data))
	assert.Equal(t, "See you at 9", aws.ToString(api.input.Content.Simple.Body.Text.Data))
}

func TestNewMailerRequiresSender(t *testing.T) {
	_, err := NewMailer(aws.Config{}, "")
	assert.Error(t, err)
}
