package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Credential loaders are variables so tests can run without a cloud
// account.
var (
	findGoogleCredentials = func(ctx context.Context) (*google.Credentials, error) {
		return google.FindDefaultCredentials(ctx, cloudPlatformScope)
	}

	loadAWSConfig = func(ctx context.Context, region string) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
)

// googleCredentials resolves Application Default Credentials for Vertex AI.
// The returned token source outlives the call that built it and refreshes
// with the context it was created with, so that context drops cancellation
// from ctx.
func googleCredentials(ctx context.Context) (context.Context, *google.Credentials, error) {
	detached := context.WithoutCancel(ctx)
	creds, err := findGoogleCredentials(detached)
	if err != nil {
		return nil, nil, fmt.Errorf("finding Google default credentials: %w", err)
	}
	return detached, creds, nil
}

// googleTokenSource returns the ADC token source for Vertex AI.
func googleTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	_, creds, err := googleCredentials(ctx)
	if err != nil {
		return nil, err
	}
	return creds.TokenSource, nil
}

// bearer sets the Authorization header from ts.
func bearer(req *http.Request, ts oauth2.TokenSource) error {
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("fetching Google access token: %w", err)
	}
	tok.SetAuthHeader(req)
	return nil
}

// missingKeyError names the environment variable to set when one is known.
func missingKeyError(cfg Config) error {
	if env := APIKeyEnv(cfg.Name); env != "" {
		return fmt.Errorf("provider %s: %s is not set", cfg.Name, env)
	}
	return fmt.Errorf("provider %s: API key is required", cfg.Name)
}
