package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	packageExtensionConstant        = ".nupkg"
	symbolsPackageExtensionConstant = ".symbols.nupkg"
	packageFormFieldConstant        = "package"
	apiKeyHeaderNameConstant        = "X-NuGet-ApiKey"
	contentTypeHeaderNameConstant   = "Content-Type"
	packageResponseSnippetLimit     = 512
	packageRequestTemplate          = "build upload request for %s: %w"
	packageReadTemplate             = "read package %s: %w"
	packageUploadTemplate           = "upload %s: %w"
	packageStatusTemplate           = "upload %s: unexpected status %d: %s"
	pushSkippedMessageConstant      = "Package source not configured, skipping package push"
	packagePushedMessageConstant    = "Pushed package"
	logFieldPackageConstant         = "package"
	logFieldSourceConstant          = "source"
	logFieldStatusCodeConstant      = "status_code"
)

// HTTPClient abstracts the Do method of http.Client.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// PackagePushRequest lists the artifacts to upload and the package source receiving them.
type PackagePushRequest struct {
	Source    string
	APIKey    string
	Artifacts []string
}

// PackagePushResult reports which packages were uploaded.
type PackagePushResult struct {
	Pushed  []string
	Skipped bool
}

// PackagePusher uploads NuGet packages with the push protocol (multipart PUT).
type PackagePusher struct {
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewPackagePusher constructs a pusher. A nil client uses http.DefaultClient.
func NewPackagePusher(httpClient HTTPClient, logger *zap.Logger) *PackagePusher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PackagePusher{httpClient: httpClient, logger: logger}
}

// SelectPackages keeps the *.nupkg artifacts and drops symbol packages.
func SelectPackages(artifacts []string) []string {
	selected := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		lowerName := strings.ToLower(filepath.Base(artifact))
		if !strings.HasSuffix(lowerName, packageExtensionConstant) || strings.HasSuffix(lowerName, symbolsPackageExtensionConstant) {
			continue
		}
		selected = append(selected, artifact)
	}
	return selected
}

// Push uploads every package in order and stops at the first rejected upload.
// Without a source nothing is uploaded and the result is marked skipped.
func (pusher *PackagePusher) Push(executionContext context.Context, request PackagePushRequest) (PackagePushResult, error) {
	source := strings.TrimSpace(request.Source)
	if len(source) == 0 {
		pusher.logger.Info(pushSkippedMessageConstant)
		return PackagePushResult{Skipped: true}, nil
	}

	result := PackagePushResult{}
	for _, packagePath := range SelectPackages(request.Artifacts) {
		if pushError := pusher.pushPackage(executionContext, source, request.APIKey, packagePath); pushError != nil {
			return result, pushError
		}
		result.Pushed = append(result.Pushed, filepath.Base(packagePath))
	}
	return result, nil
}

func (pusher *PackagePusher) pushPackage(executionContext context.Context, source string, apiKey string, packagePath string) error {
	packageName := filepath.Base(packagePath)
	content, readError := os.ReadFile(packagePath)
	if readError != nil {
		return fmt.Errorf(packageReadTemplate, packagePath, readError)
	}

	var body bytes.Buffer
	formWriter := multipart.NewWriter(&body)
	fileWriter, partError := formWriter.CreateFormFile(packageFormFieldConstant, packageName)
	if partError != nil {
		return fmt.Errorf(packageRequestTemplate, packageName, partError)
	}
	if _, writeError := fileWriter.Write(content); writeError != nil {
		return fmt.Errorf(packageRequestTemplate, packageName, writeError)
	}
	if closeError := formWriter.Close(); closeError != nil {
		return fmt.Errorf(packageRequestTemplate, packageName, closeError)
	}

	request, requestError := http.NewRequestWithContext(executionContext, http.MethodPut, source, &body)
	if requestError != nil {
		return fmt.Errorf(packageRequestTemplate, packageName, requestError)
	}
	request.Header.Set(contentTypeHeaderNameConstant, formWriter.FormDataContentType())
	request.Header.Set(apiKeyHeaderNameConstant, apiKey)

	response, responseError := pusher.httpClient.Do(request)
	if responseError != nil {
		return fmt.Errorf(packageUploadTemplate, packageName, responseError)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(response.Body, packageResponseSnippetLimit))
		return fmt.Errorf(packageStatusTemplate, packageName, response.StatusCode, strings.TrimSpace(string(snippet)))
	}

	pusher.logger.Info(packagePushedMessageConstant,
		zap.String(logFieldPackageConstant, packageName),
		zap.String(logFieldSourceConstant, source),
		zap.Int(logFieldStatusCodeConstant, response.StatusCode),
	)
	return nil
}
