package transport

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
)

// ErrUnknownFrame is returned for frames whose type tag is not recognized
var ErrUnknownFrame = errors.New("unknown frame type")

var pingFrame = mustEncode(types.Frame{Type: types.EventPing})

// DecodeFrame parses one inbound frame into its event
func DecodeFrame(data []byte) (types.Event, error) {
	var frame types.Frame
	if err := sonic.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch frame.Type {
	case types.EventPong:
		return types.PongEvent{}, nil
	case types.EventProgress:
		return decodePayload[types.ProgressEvent](frame)
	case types.EventPageComplete:
		return decodePayload[types.PageCompleteEvent](frame)
	case types.EventBatchComplete:
		return decodePayload[types.BatchCompleteEvent](frame)
	case types.EventStatus:
		return decodePayload[types.StatusEvent](frame)
	case types.EventError:
		return decodePayload[types.ErrorEvent](frame)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, frame.Type)
	}
}

func decodePayload[T types.Event](frame types.Frame) (types.Event, error) {
	var ev T
	if len(frame.Data) == 0 {
		return nil, fmt.Errorf("malformed %s frame: missing data", frame.Type)
	}
	if err := sonic.Unmarshal(frame.Data, &ev); err != nil {
		return nil, fmt.Errorf("malformed %s frame: %w", frame.Type, err)
	}
	return ev, nil
}

// EncodeFrame serializes an outbound frame
func EncodeFrame(frame types.Frame) ([]byte, error) {
	return sonic.Marshal(frame)
}

func mustEncode(frame types.Frame) []byte {
	data, err := EncodeFrame(frame)
	if err != nil {
		panic(err)
	}
	return data
}
