package metrics

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"rdxflow/logger"
)

type cloudWatchState struct {
	client    *cloudwatch.Client
	namespace string
	region    string
}

var cwState atomic.Pointer[cloudWatchState]

// InitCloudWatch initialises the CloudWatch client and registers a metric
// handler that forwards every emitted metric. When the AWS configuration
// cannot be loaded the function logs a warning and leaves publishing
// disabled; the pipeline keeps running either way.
func InitCloudWatch(region, namespace string) HandlerID {
	log := logger.GetLogger().WithComponent("cloudwatch")

	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if namespace == "" {
		namespace = "rdxflow"
	}

	ctx := context.Background()
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return 0
	}

	state := &cloudWatchState{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		region:    cfg.Region,
	}
	cwState.Store(state)

	log.WithFields(logger.Fields{
		"region":    state.region,
		"namespace": state.namespace,
	}).Info("initialized CloudWatch client")

	return RegisterHandler(publishMetric)
}

func publishMetric(m Metric) {
	state := cwState.Load()
	if state == nil || state.client == nil {
		return
	}

	datum := cwtypes.MetricDatum{
		MetricName: aws.String(m.Name),
		Timestamp:  aws.Time(m.Timestamp),
		Unit:       cwtypes.StandardUnitCount,
		Value:      aws.Float64(m.Value),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("component"), Value: aws.String(m.Component)},
		},
	}

	_, err := state.client.PutMetricData(context.Background(), &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(state.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		logger.GetLogger().WithComponent("cloudwatch").WithError(err).Debug("failed to publish metric")
	}
}
