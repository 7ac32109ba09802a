package aws

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/sky-zhang01/punchpilot-sub001/internal/config"
)

// NewAWSConfig creates a new AWS configuration, pointing to LocalStack if an endpoint is provided.
func NewAWSConfig(ctx context.Context, appConfig config.Config) (aws.Config, error) {
	if appConfig.IsLocalDev {
		log.Println("Local development mode detected. Routing AWS calls to LocalStack.")
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if appConfig.AWSEndpoint != "" {
				return aws.Endpoint{
					URL:           appConfig.AWSEndpoint,
					SigningRegion: region,
					PartitionID:   "aws",
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})

		return awsConfig.LoadDefaultConfig(ctx,
			awsConfig.WithRegion(appConfig.AWSRegion),
			awsConfig.WithEndpointResolverWithOptions(customResolver),
			awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
		)
	}

	// Outside local development, use the standard AWS credential chain.
	return awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(appConfig.AWSRegion))
}
