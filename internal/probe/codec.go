package probe

import (
	"fmt"

	"Go2NetScope/internal/model"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Marshal encodes a record as a protobuf Struct. The timestamp is carried as
// the seconds and nanos of a protobuf Timestamp so no precision is lost.
func Marshal(rec *model.PacketRecord) ([]byte, error) {
	ts := timestamppb.New(rec.Timestamp)
	msg, err := structpb.NewStruct(map[string]any{
		"ts_seconds":        float64(ts.GetSeconds()),
		"ts_nanos":          float64(ts.GetNanos()),
		"source_ip":         rec.SourceIP,
		"destination_ip":    rec.DestinationIP,
		"source_port":       rec.SourcePort,
		"destination_port":  rec.DestinationPort,
		"protocol":          rec.Protocol,
		"packet_length":     rec.PacketLength,
		"direction":         rec.Direction,
		"tcp_flags":         rec.TCPFlags,
		"application_guess": rec.ApplicationGuess,
		"traffic_category":  rec.TrafficCategory,
		"connection_status": rec.ConnectionStatus,
		"geographic_region": rec.GeographicRegion,
		"bytes_per_second":  float64(rec.BytesPerSecond),
		"security_level":    rec.SecurityLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build record message: %w", err)
	}
	return proto.Marshal(msg)
}

// Unmarshal decodes a message produced by Marshal.
func Unmarshal(data []byte) (*model.PacketRecord, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record message: %w", err)
	}
	f := msg.GetFields()
	if _, ok := f["ts_seconds"]; !ok {
		return nil, fmt.Errorf("record message has no timestamp")
	}

	ts := &timestamppb.Timestamp{
		Seconds: int64(f["ts_seconds"].GetNumberValue()),
		Nanos:   int32(f["ts_nanos"].GetNumberValue()),
	}
	if err := ts.CheckValid(); err != nil {
		return nil, fmt.Errorf("invalid record timestamp: %w", err)
	}

	rec := model.NewPacketRecord(ts.AsTime())
	rec.SourceIP = f["source_ip"].GetStringValue()
	rec.DestinationIP = f["destination_ip"].GetStringValue()
	rec.SourcePort = int(f["source_port"].GetNumberValue())
	rec.DestinationPort = int(f["destination_port"].GetNumberValue())
	rec.Protocol = f["protocol"].GetStringValue()
	rec.PacketLength = int(f["packet_length"].GetNumberValue())
	rec.Direction = f["direction"].GetStringValue()
	rec.TCPFlags = f["tcp_flags"].GetStringValue()
	rec.ApplicationGuess = f["application_guess"].GetStringValue()
	rec.TrafficCategory = f["traffic_category"].GetStringValue()
	rec.ConnectionStatus = f["connection_status"].GetStringValue()
	rec.GeographicRegion = f["geographic_region"].GetStringValue()
	rec.BytesPerSecond = int64(f["bytes_per_second"].GetNumberValue())
	rec.SecurityLevel = f["security_level"].GetStringValue()
	return rec, nil
}
