package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes operational counters to CloudWatch. Publication is
// fire-and-forget: a metrics outage must never affect a user operation.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
}

// NewMetrics creates a metrics instance
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
	}
}

// RecordSaveConflict counts a versioned save that lost the race.
func (m *Metrics) RecordSaveConflict(ctx context.Context) {
	m.put(ctx, types.MetricDatum{
		MetricName: aws.String("CanvasSaveConflict"),
		Value:      aws.Float64(1),
		Unit:       types.StandardUnitCount,
		Timestamp:  aws.Time(time.Now()),
	})
}

// RecordStructuringRun counts a completed auto-structure pass.
func (m *Metrics) RecordStructuringRun(ctx context.Context, sections, suggestedEdges int) {
	now := time.Now()
	m.put(ctx,
		types.MetricDatum{
			MetricName: aws.String("StructuringRuns"),
			Value:      aws.Float64(1),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(now),
		},
		types.MetricDatum{
			MetricName: aws.String("StructuringSections"),
			Value:      aws.Float64(float64(sections)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(now),
		},
		types.MetricDatum{
			MetricName: aws.String("StructuringSuggestedEdges"),
			Value:      aws.Float64(float64(suggestedEdges)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(now),
		},
	)
}

func (m *Metrics) put(ctx context.Context, data ...types.MetricDatum) {
	if m == nil || m.client == nil {
		return
	}
	go func() {
		putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_, _ = m.client.PutMetricData(putCtx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data,
		})
	}()
}
