package email

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/communehq/commune/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	sent []*ses.SendEmailInput
	err  error
}

func (f *fakeSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.sent = append(f.sent, in)
	return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, f.err
}

func TestSendComplaintReceived(t *testing.T) {
	catalog, err := i18n.New("en")
	require.NoError(t, err)

	client := &fakeSES{}
	svc := NewWithClient(client, "noreply@commune.dev", "Commune", catalog)

	err = svc.SendComplaintReceived(context.Background(), ComplaintNotice{
		To:          "reporter@example.com",
		Locale:      "fr",
		ComplaintID: "c-42",
		TargetType:  "post",
		Reason:      "spam",
	})
	require.NoError(t, err)
	require.Len(t, client.sent, 1)

	in := client.sent[0]
	assert.Equal(t, "Commune <noreply@commune.dev>", aws.ToString(in.Source))
	assert.Equal(t, []string{"reporter@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Nous avons bien reçu votre signalement", aws.ToString(in.Message.Subject.Data))
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "c-42")
	assert.Contains(t, aws.ToString(in.Message.Body.Html.Data), "spam")
}

func TestSendComplaintReceivedEscapesHTML(t *testing.T) {
	client := &fakeSES{}
	svc := NewWithClient(client, "noreply@commune.dev", "", nil)

	require.NoError(t, svc.SendComplaintReceived(context.Background(), ComplaintNotice{
		To: "r@example.com", ComplaintID: "1", TargetType: "post", Reason: "<script>",
	}))

	in := client.sent[0]
	assert.Equal(t, "noreply@commune.dev", aws.ToString(in.Source))
	assert.NotContains(t, aws.ToString(in.Message.Body.Html.Data), "<script>")
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "<script>")
}

func TestSendComplaintReceivedError(t *testing.T) {
	svc := NewWithClient(&fakeSES{err: errors.New("throttled")}, "a@b.c", "", nil)
	err := svc.SendComplaintReceived(context.Background(), ComplaintNotice{To: "x@y.z"})
	assert.ErrorContains(t, err, "throttled")
}
