package interpreter

import (
	"fmt"
	"math"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/survey"
)

// DecodeUpdateCommand validates a raw update_question tool-call payload.
// The payload is untrusted output of the generative backend, so every field
// is checked here, at the boundary: index must be an integral number, and an
// unrecognized type literal is dropped while the rest of the patch survives.
func DecodeUpdateCommand(args map[string]interface{}) (survey.UpdateCommand, error) {
	rawIndex, ok := args["index"]
	if !ok {
		return survey.UpdateCommand{}, fmt.Errorf("%w: missing index", internal.ErrMalformedToolCall)
	}

	index, err := toInt(rawIndex)
	if err != nil {
		return survey.UpdateCommand{}, fmt.Errorf("%w: %v", internal.ErrMalformedToolCall, err)
	}

	cmd := survey.UpdateCommand{Index: index}

	if raw, ok := args["questionText"]; ok {
		text, ok := raw.(string)
		if !ok {
			return survey.UpdateCommand{}, fmt.Errorf("%w: questionText is not a string", internal.ErrMalformedToolCall)
		}
		cmd.Text = &text
	}

	if raw, ok := args["type"]; ok {
		literal, ok := raw.(string)
		if !ok {
			return survey.UpdateCommand{}, fmt.Errorf("%w: type is not a string", internal.ErrMalformedToolCall)
		}
		if t := survey.QuestionType(literal); t.Valid() {
			cmd.Type = &t
		}
	}

	if raw, ok := args["options"]; ok {
		list, ok := raw.([]interface{})
		if !ok {
			return survey.UpdateCommand{}, fmt.Errorf("%w: options is not an array", internal.ErrMalformedToolCall)
		}
		options := make([]string, 0, len(list))
		for _, entry := range list {
			s, ok := entry.(string)
			if !ok {
				return survey.UpdateCommand{}, fmt.Errorf("%w: option entry is not a string", internal.ErrMalformedToolCall)
			}
			options = append(options, s)
		}
		cmd.Options = &options
	}

	if raw, ok := args["rationale"]; ok {
		rationale, ok := raw.(string)
		if !ok {
			return survey.UpdateCommand{}, fmt.Errorf("%w: rationale is not a string", internal.ErrMalformedToolCall)
		}
		cmd.Rationale = &rationale
	}

	return cmd, nil
}

func toInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("index %v is not an integer", v)
		}
		return int(v), nil
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("index has unexpected type %T", raw)
	}
}
