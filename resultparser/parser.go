// Package resultparser recovers structured ReviewSummary/FixSummary
// verdicts from an agent's raw text output.
package resultparser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
	jsonschemalib "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kenryu42/ralph-review-sub002/types"
)

// extractJSONObject strips markdown code fences (if present) and returns
// the outermost {...} substring, mirroring
// wt/taskrouter/router.go's parseRouteResponse.
func extractJSONObject(response string) (string, error) {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```") {
		lines := strings.Split(response, "\n")
		var jsonLines []string
		inBlock := false
		for _, line := range lines {
			if strings.HasPrefix(line, "```") {
				inBlock = !inBlock
				continue
			}
			if inBlock {
				jsonLines = append(jsonLines, line)
			}
		}
		response = strings.Join(jsonLines, "\n")
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return response[start : end+1], nil
}

// ParseReview recovers a ReviewSummary from raw reviewer output.
func ParseReview(raw string) (*types.ReviewSummary, error) {
	jsonStr, err := extractJSONObject(raw)
	if err != nil {
		return nil, &types.ParseError{Role: types.RoleReviewer, Cause: err}
	}

	// Cheap presence check before paying for a full unmarshal + schema
	// validation, mirroring the teacher's layered "cheap check, then full
	// parse" style.
	if _, _, _, err := jsonparser.Get([]byte(jsonStr), "findings"); err != nil {
		if _, _, _, cleanErr := jsonparser.Get([]byte(jsonStr), "clean"); cleanErr != nil {
			return nil, &types.ParseError{Role: types.RoleReviewer, Cause: fmt.Errorf("missing findings/clean fields")}
		}
	}

	var summary types.ReviewSummary
	if err := json.Unmarshal([]byte(jsonStr), &summary); err != nil {
		return nil, &types.ParseError{Role: types.RoleReviewer, Cause: err}
	}

	if err := validateAgainstSchema(ReviewSchema(), []byte(jsonStr)); err != nil {
		return nil, &types.ParseError{Role: types.RoleReviewer, Cause: err}
	}

	for _, f := range summary.Findings {
		if !f.Severity.Valid() {
			return nil, &types.ParseError{Role: types.RoleReviewer, Cause: fmt.Errorf("invalid severity %q", f.Severity)}
		}
	}

	return &summary, nil
}

// ParseFix recovers a FixSummary from raw fixer output.
func ParseFix(raw string) (*types.FixSummary, error) {
	jsonStr, err := extractJSONObject(raw)
	if err != nil {
		return nil, &types.ParseError{Role: types.RoleFixer, Cause: err}
	}

	if _, _, _, err := jsonparser.Get([]byte(jsonStr), "fixes"); err != nil {
		return nil, &types.ParseError{Role: types.RoleFixer, Cause: fmt.Errorf("missing fixes field")}
	}

	var summary types.FixSummary
	if err := json.Unmarshal([]byte(jsonStr), &summary); err != nil {
		return nil, &types.ParseError{Role: types.RoleFixer, Cause: err}
	}

	if err := validateAgainstSchema(FixSchema(), []byte(jsonStr)); err != nil {
		return nil, &types.ParseError{Role: types.RoleFixer, Cause: err}
	}

	return &summary, nil
}

func validateAgainstSchema(schema *jsonschemalib.Schema, data []byte) error {
	if schema == nil {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}
