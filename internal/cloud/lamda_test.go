package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLambda struct {
	in     *lambda.InvokeInput
	status int32
	err    error
}

func (f *fakeLambda) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &lambda.InvokeOutput{StatusCode: f.status}, nil
}

func TestLambdaInvokeAsync(t *testing.T) {
	fake := &fakeLambda{status: 202}
	c := NewLambdaClientWithAPI(fake, "energy-scan")

	require.NoError(t, c.InvokeAsync(context.Background(), map[string]any{"lookback_days": 7, "train": true}))
	assert.Equal(t, "energy-scan", aws.ToString(fake.in.FunctionName))
	assert.Equal(t, lambdatypes.InvocationTypeEvent, fake.in.InvocationType)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(fake.in.Payload, &payload))
	assert.Equal(t, 7.0, payload["lookback_days"])
	assert.Equal(t, true, payload["train"])
}

func TestLambdaInvokeAsyncErrors(t *testing.T) {
	c := NewLambdaClientWithAPI(&fakeLambda{status: 200}, "energy-scan")
	assert.Error(t, c.InvokeAsync(context.Background(), struct{}{}))

	c = NewLambdaClientWithAPI(&fakeLambda{err: errors.New("throttled")}, "energy-scan")
	assert.ErrorContains(t, c.InvokeAsync(context.Background(), struct{}{}), "throttled")
}
