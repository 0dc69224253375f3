package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// LambdaAPI is the subset of the Lambda client used to hand off batches.
type LambdaAPI interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, opts ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaClient queues scan batches on the scan function.
type LambdaClient struct {
	svc      LambdaAPI
	function string
}

func NewLambdaClient(ctx context.Context, region, function string) (*LambdaClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewLambdaClientWithAPI(lambda.NewFromConfig(cfg), function), nil
}

func NewLambdaClientWithAPI(svc LambdaAPI, function string) *LambdaClient {
	return &LambdaClient{svc: svc, function: function}
}

// InvokeAsync sends payload as an Event invocation and returns once Lambda
// has accepted it.
func (c *LambdaClient) InvokeAsync(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	out, err := c.svc.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(c.function),
		InvocationType: types.InvocationTypeEvent,
		Payload:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to invoke %s: %w", c.function, err)
	}
	if out.StatusCode != 202 {
		return fmt.Errorf("unexpected status code %d from %s", out.StatusCode, c.function)
	}
	return nil
}
