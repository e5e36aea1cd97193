package logger

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

var cwClient *cloudwatch.Client
var cwNamespace = "tradeflow"

var (
	errorCount int64
	warnCount  int64
)

func recordWarn(component string) {
	atomic.AddInt64(&warnCount, 1)
}

func recordError(component string) {
	atomic.AddInt64(&errorCount, 1)
}

// InitCloudWatch initialises the CloudWatch client for the given region and
// namespace. If region is empty it falls back to the AWS_REGION environment
// variable. When the client cannot be created a warning is logged and metric
// publishing stays disabled.
func InitCloudWatch(region, namespace string) {
	log := GetLogger().WithComponent("cloudwatch")

	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	ctx := context.Background()
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return
	}

	cwClient = cloudwatch.NewFromConfig(cfg)
	if namespace != "" {
		cwNamespace = namespace
	}

	log.WithFields(Fields{"region": region, "namespace": cwNamespace}).Info("initialized CloudWatch client")
}

// FlushCounters publishes the accumulated error and warning counters and
// resets them. Called once at the end of a CLI invocation; a publish failure
// is logged, never propagated.
func FlushCounters(ctx context.Context) {
	if cwClient == nil {
		return
	}

	errs := atomic.SwapInt64(&errorCount, 0)
	warns := atomic.SwapInt64(&warnCount, 0)
	if errs == 0 && warns == 0 {
		return
	}

	data := []cwtypes.MetricDatum{
		{
			MetricName: aws.String("Errors"),
			Unit:       cwtypes.StandardUnitCount,
			Value:      aws.Float64(float64(errs)),
		},
		{
			MetricName: aws.String("Warnings"),
			Unit:       cwtypes.StandardUnitCount,
			Value:      aws.Float64(float64(warns)),
		},
	}

	if _, err := cwClient.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(cwNamespace),
		MetricData: data,
	}); err != nil {
		GetLogger().WithComponent("cloudwatch").WithError(err).Warn("failed to publish CloudWatch metrics")
	}
}
