package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// CloudWatchSink publishes metrics to AWS CloudWatch under a fixed namespace
// with an Application dimension.
type CloudWatchSink struct {
	client    *cloudwatch.Client
	namespace string
	appName   string
	logger    zerolog.Logger
}

// NewCloudWatchSink builds a CloudWatch-backed sink using the default AWS
// credential chain.
func NewCloudWatchSink(ctx context.Context, namespace, region, appName string, logger zerolog.Logger) (*CloudWatchSink, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}

	if namespace == "" {
		namespace = "CryptoTracker/Application"
	}

	return &CloudWatchSink{
		client:    cloudwatch.NewFromConfig(awsCfg),
		namespace: namespace,
		appName:   appName,
		logger:    logger.With().Str("component", "metrics_cloudwatch").Logger(),
	}, nil
}

// Publish sends one datum to CloudWatch. Failures are logged and swallowed.
func (c *CloudWatchSink) Publish(name string, value float64, unit string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       types.StandardUnit(unit),
		Timestamp:  aws.Time(time.Now().UTC()),
		Dimensions: []types.Dimension{
			{
				Name:  aws.String("Application"),
				Value: aws.String(c.appName),
			},
		},
	}

	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(c.namespace),
		MetricData: []types.MetricDatum{datum},
	})
	if err != nil {
		c.logger.Error().Err(err).Str("metric", name).Msg("failed to publish metric")
		return
	}

	c.logger.Debug().Str("metric", name).Float64("value", value).Msg("metric published")
}

var _ Sink = (*CloudWatchSink)(nil)
