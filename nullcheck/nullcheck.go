// Package nullcheck inspects provider data for empty fields before it is
// stored. Each field has a behavior deciding whether emptiness rejects the
// record, is logged, or is a known platform limit.
package nullcheck

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/rs/zerolog/log"
)

// Behavior defines how to handle an empty value
type Behavior string

const (
	BehaviorCritical    Behavior = "critical"    // reject the record
	BehaviorLog         Behavior = "log"         // keep the record, log a warning
	BehaviorUnavailable Behavior = "unavailable" // platform does not always expose the field
	BehaviorOptional    Behavior = "optional"
)

// Data types reported in Events
const (
	DataTypeChannel = "channel"
	DataTypeVideo   = "video"
)

// Rule defines the behavior for one field path, e.g. "VideoStat.PublishedAt"
type Rule struct {
	Behavior Behavior `json:"behavior"`
	Message  string   `json:"message"`
}

// Event records one empty field
type Event struct {
	DataType        string   `json:"dataType"`
	FieldName       string   `json:"fieldName"`
	Behavior        Behavior `json:"behavior"`
	IsPlatformLimit bool     `json:"isPlatformLimit"`
	Message         string   `json:"message"`
}

// Result holds the outcome of one validation
type Result struct {
	Valid       bool
	Errors      []string
	Warnings    []string
	Unavailable []string
	Events      []Event
}

// DefaultRules returns the rules for channel snapshots and videos
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"ChannelSnapshot.ChannelID":       {Behavior: BehaviorCritical, Message: "ChannelID is required"},
		"ChannelSnapshot.Name":            {Behavior: BehaviorCritical, Message: "Name is required"},
		"ChannelSnapshot.Description":     {Behavior: BehaviorLog, Message: "Description is empty"},
		"ChannelSnapshot.ThumbnailURL":    {Behavior: BehaviorLog, Message: "ThumbnailURL is empty"},
		"ChannelSnapshot.SubscriberCount": {Behavior: BehaviorUnavailable, Message: "SubscriberCount is hidden by the channel"},
		"ChannelSnapshot.VideoCount":      {Behavior: BehaviorLog, Message: "VideoCount is zero"},
		"ChannelSnapshot.ViewCount":       {Behavior: BehaviorLog, Message: "ViewCount is zero"},
		"ChannelSnapshot.CreatedAt":       {Behavior: BehaviorLog, Message: "CreatedAt is zero"},
		"ChannelSnapshot.LastSyncAt":      {Behavior: BehaviorOptional, Message: "LastSyncAt is empty"},

		"VideoStat.VideoID":         {Behavior: BehaviorCritical, Message: "VideoID is required"},
		"VideoStat.ChannelID":       {Behavior: BehaviorCritical, Message: "ChannelID is required"},
		"VideoStat.PublishedAt":     {Behavior: BehaviorCritical, Message: "PublishedAt is required"},
		"VideoStat.Title":           {Behavior: BehaviorLog, Message: "Title is empty"},
		"VideoStat.Description":     {Behavior: BehaviorOptional, Message: "Description is empty"},
		"VideoStat.ThumbnailURL":    {Behavior: BehaviorLog, Message: "ThumbnailURL is empty"},
		"VideoStat.DurationSeconds": {Behavior: BehaviorLog, Message: "DurationSeconds is zero"},
		"VideoStat.ViewCount":       {Behavior: BehaviorLog, Message: "ViewCount is zero"},
		"VideoStat.LikeCount":       {Behavior: BehaviorUnavailable, Message: "LikeCount is hidden by the channel"},
		"VideoStat.CommentCount":    {Behavior: BehaviorUnavailable, Message: "CommentCount is disabled for the video"},
	}
}

// MergeRules overrides the default rules with user rules
func MergeRules(user map[string]Rule) map[string]Rule {
	merged := DefaultRules()
	for k, v := range user {
		merged[k] = v
	}
	return merged
}

// LoadRulesFromJSON parses user rules and merges them with the defaults
func LoadRulesFromJSON(data []byte) (map[string]Rule, error) {
	var user map[string]Rule
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to parse rules JSON: %w", err)
	}
	return MergeRules(user), nil
}

// Validator checks records against a rule set
type Validator struct {
	rules map[string]Rule
}

// NewValidator creates a validator with the default rules
func NewValidator() *Validator {
	return NewValidatorWithRules(DefaultRules())
}

// NewValidatorWithRules creates a validator with a complete rule set
func NewValidatorWithRules(rules map[string]Rule) *Validator {
	return &Validator{rules: rules}
}

// ValidateChannel validates a channel snapshot
func (v *Validator) ValidateChannel(channel model.ChannelSnapshot) *Result {
	result := newResult()
	v.validateStruct("ChannelSnapshot", DataTypeChannel, reflect.ValueOf(channel), result)
	return result
}

// ValidateVideo validates a video
func (v *Validator) ValidateVideo(video model.VideoStat) *Result {
	result := newResult()
	v.validateStruct("VideoStat", DataTypeVideo, reflect.ValueOf(video), result)
	return result
}

// FilterVideos returns the videos without critical issues and the number
// dropped
func (v *Validator) FilterVideos(videos []model.VideoStat) ([]model.VideoStat, int) {
	kept := make([]model.VideoStat, 0, len(videos))
	for _, video := range videos {
		if v.ValidateVideo(video).Valid {
			kept = append(kept, video)
		}
	}
	return kept, len(videos) - len(kept)
}

func newResult() *Result {
	return &Result{Valid: true}
}

// validateStruct recursively validates struct fields
func (v *Validator) validateStruct(prefix, dataType string, val reflect.Value, result *Result) {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		fullPath := prefix + "." + fieldType.Name

		if field.Kind() == reflect.Struct && fieldType.Type != reflect.TypeOf(time.Time{}) {
			v.validateStruct(fullPath, dataType, field, result)
			continue
		}

		switch field.Kind() {
		case reflect.Ptr:
			if field.IsNil() {
				v.handleEmptyField(fullPath, dataType, result)
			}
		case reflect.Slice, reflect.Map:
			if field.IsNil() || field.Len() == 0 {
				v.handleEmptyField(fullPath, dataType, result)
			}
		default:
			if isEmptyValue(field) {
				v.handleEmptyField(fullPath, dataType, result)
			}
		}
	}
}

func isEmptyValue(field reflect.Value) bool {
	switch field.Kind() {
	case reflect.String:
		return field.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return field.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return field.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return field.Float() == 0
	case reflect.Bool:
		return !field.Bool()
	case reflect.Struct:
		if t, ok := field.Interface().(time.Time); ok {
			return t.IsZero()
		}
	}
	return false
}

func (v *Validator) handleEmptyField(fieldPath, dataType string, result *Result) {
	rule, exists := v.rules[fieldPath]
	if !exists {
		return
	}

	result.Events = append(result.Events, Event{
		DataType:        dataType,
		FieldName:       fieldPath,
		Behavior:        rule.Behavior,
		IsPlatformLimit: rule.Behavior == BehaviorUnavailable,
		Message:         rule.Message,
	})

	switch rule.Behavior {
	case BehaviorCritical:
		result.Valid = false
		result.Errors = append(result.Errors, rule.Message)
		log.Error().Str("data_type", dataType).Str("field_path", fieldPath).Msgf("null_validation: %s", rule.Message)
	case BehaviorLog:
		result.Warnings = append(result.Warnings, rule.Message)
		log.Debug().Str("data_type", dataType).Str("field_path", fieldPath).Msgf("null_validation: %s", rule.Message)
	case BehaviorUnavailable:
		result.Unavailable = append(result.Unavailable, fieldPath)
	}
}
