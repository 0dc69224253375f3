package cloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

type SNSAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes engine alerts to a topic.
type SNSClient struct {
	svc      SNSAPI
	topicArn string
}

func NewSNSClient(ctx context.Context, region, topicArn string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewSNSClientWithAPI(sns.NewFromConfig(cfg), topicArn), nil
}

func NewSNSClientWithAPI(svc SNSAPI, topicArn string) *SNSClient {
	return &SNSClient{svc: svc, topicArn: topicArn}
}

func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) error {
	result, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}

	log.Debug().Str("message_id", aws.ToString(result.MessageId)).Msg("alert sent")
	return nil
}

// SendDeviationAlert reports a severe deviation for one period.
func (c *SNSClient) SendDeviationAlert(ctx context.Context, res domain.DeviationResult) error {
	subject := fmt.Sprintf("Energy deviation: %s %s", res.EntityID, res.Compliance)
	var b strings.Builder
	fmt.Fprintf(&b, "Entity: %s (%s)\n", res.EntityID, res.EnergySource)
	fmt.Fprintf(&b, "Period: %s\n", res.PeriodStart.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Actual: %.2f kWh\n", res.ActualUsed)
	fmt.Fprintf(&b, "Expected: %.2f kWh\n", res.Predicted)
	fmt.Fprintf(&b, "Deviation: %+.1f%%\n", res.DeviationPercent)
	fmt.Fprintf(&b, "Baseline: %s v%d\n", res.ModelID, res.ModelVersion)
	if res.ProjectionApplied {
		fmt.Fprintf(&b, "Partial period projected from %.1f h (confidence %.1f)\n", res.HoursCovered, res.Confidence)
	}
	return c.SendAlert(ctx, subject, b.String())
}

// SendOpportunityDigest summarizes the top ranked opportunities of a scan.
func (c *SNSClient) SendOpportunityDigest(ctx context.Context, opps []domain.Opportunity, top int) error {
	if len(opps) == 0 {
		return nil
	}
	if top > 0 && len(opps) > top {
		opps = opps[:top]
	}

	subject := fmt.Sprintf("Energy opportunities: top %d", len(opps))
	var b strings.Builder
	for _, o := range opps {
		fmt.Fprintf(&b, "%d. %s %s: $%s (%.0f kWh), payback %d days\n",
			o.Rank, o.EntityName, o.IssueType, o.PotentialSavingsUSD.StringFixed(2), o.PotentialSavingsKWh, o.ROIDays)
	}
	return c.SendAlert(ctx, subject, b.String())
}
