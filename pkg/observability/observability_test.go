package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCloudWatch struct {
	mock.Mock
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, params)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(0)
}

func TestRecordLatency(t *testing.T) {
	client := new(mockCloudWatch)
	client.On("PutMetricData", mock.Anything, mock.MatchedBy(func(in *cloudwatch.PutMetricDataInput) bool {
		return aws.ToString(in.Namespace) == "DocGraph" &&
			aws.ToString(in.MetricData[0].MetricName) == "OperationLatency" &&
			aws.ToFloat64(in.MetricData[0].Value) == 250
	})).Return(nil)

	NewMetrics("DocGraph", client, zap.NewNop()).RecordLatency(context.Background(), "graph.render", 250*time.Millisecond)

	client.AssertExpectations(t)
}

func TestIncrementCounterSortsDimensions(t *testing.T) {
	client := new(mockCloudWatch)
	var captured *cloudwatch.PutMetricDataInput
	client.On("PutMetricData", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*cloudwatch.PutMetricDataInput) }).
		Return(errors.New("throttled"))

	NewMetrics("DocGraph", client, zap.NewNop()).IncrementCounter(context.Background(), "ConnectionWrites", map[string]string{
		"Type":   "manual",
		"Result": "created",
	})

	require.NotNil(t, captured)
	dims := captured.MetricData[0].Dimensions
	require.Len(t, dims, 2)
	assert.Equal(t, "Result", aws.ToString(dims[0].Name))
	assert.Equal(t, "Type", aws.ToString(dims[1].Name))
}

func TestNilMetricsAndTracerAreNoOps(t *testing.T) {
	var m *Metrics
	m.RecordLatency(context.Background(), "noop", time.Second)
	NewMetrics("DocGraph", nil, nil).IncrementCounter(context.Background(), "noop", nil)

	var tracer *Tracer
	called := false
	err := tracer.TraceFunction(context.Background(), "noop", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
	tracer.AddAnnotation(context.Background(), "orgID", "org-1")

	sentinel := errors.New("fail")
	err = NewTracer("docgraph").TraceFunction(context.Background(), "no-segment", func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
