package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/provider"
	"google.golang.org/api/googleapi"
)

var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// mapAPIError converts a YouTube API failure into an application error
func mapAPIError(err error, endpoint provider.Endpoint, q any) error {
	ctx := map[string]any{
		"endpoint": string(endpoint),
		"query":    fmt.Sprintf("%+v", q),
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return apperror.Wrap(err, apperror.CodeYouTubeRequestFailed,
			"YouTube request failed", apperror.SeverityError, ctx)
	}

	ctx["status"] = apiErr.Code
	reasons := make([]string, 0, len(apiErr.Errors))
	for _, item := range apiErr.Errors {
		reasons = append(reasons, item.Reason)
	}
	if len(reasons) > 0 {
		ctx["reasons"] = reasons
	}

	switch {
	case apiErr.Code == http.StatusForbidden && hasQuotaReason(reasons):
		return apperror.Wrap(err, apperror.CodeYouTubeQuotaExceeded,
			"YouTube API quota exceeded", apperror.SeverityCritical, ctx)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		return apperror.Wrap(err, apperror.CodeYouTubeUnauthorized,
			"YouTube API rejected the credentials", apperror.SeverityCritical, ctx)
	case apiErr.Code == http.StatusNotFound:
		return apperror.Wrap(err, apperror.CodeYouTubeNotFound,
			"YouTube resource not found", apperror.SeverityError, ctx)
	default:
		return apperror.Wrap(err, apperror.CodeYouTubeRequestFailed,
			fmt.Sprintf("YouTube request failed with status %d", apiErr.Code), apperror.SeverityError, ctx)
	}
}

func hasQuotaReason(reasons []string) bool {
	for _, r := range reasons {
		if quotaReasons[r] {
			return true
		}
	}
	return false
}
