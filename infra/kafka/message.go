package kafka

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"mbobook/domain/mbo"
	"mbobook/infra/codec"
)

const headerType = "type"

const (
	typeMetadata = "metadata"
	typeEvent    = "event"
)

var metadataKey = []byte("metadata")

func instrumentKey(id uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, id)
}

func eventMessage(ev mbo.Event) kafka.Message {
	return kafka.Message{
		Key:     instrumentKey(ev.InstrumentID),
		Value:   codec.MarshalEvent(ev),
		Headers: []kafka.Header{{Key: headerType, Value: []byte(typeEvent)}},
	}
}

func metadataMessage(md codec.Metadata) kafka.Message {
	return kafka.Message{
		Key:     metadataKey,
		Value:   codec.MarshalMetadata(md),
		Headers: []kafka.Header{{Key: headerType, Value: []byte(typeMetadata)}},
	}
}

func messageType(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == headerType {
			return string(h.Value)
		}
	}
	return typeEvent
}

// dispatch decodes msg and hands it to the matching callback of h.
func dispatch(msg kafka.Message, h Handler) error {
	switch t := messageType(msg); t {
	case typeMetadata:
		md, err := codec.UnmarshalMetadata(msg.Value)
		if err != nil {
			return errors.Wrapf(err, "partition %d offset %d", msg.Partition, msg.Offset)
		}
		if h.Metadata != nil {
			return h.Metadata(md)
		}
	case typeEvent:
		ev, err := codec.UnmarshalEvent(msg.Value)
		if err != nil {
			return errors.Wrapf(err, "partition %d offset %d", msg.Partition, msg.Offset)
		}
		if h.Event != nil {
			return h.Event(ev)
		}
	default:
		return errors.Errorf("partition %d offset %d: unknown message type %q", msg.Partition, msg.Offset, t)
	}
	return nil
}
