// Package codec is the binary encoding of MBO records shared by the
// capture files, the TCP feed and the Kafka topics. Records and metadata
// are protobuf wire-format messages; the TCP stream frames them with a
// length prefix and a CRC32 trailer.
package codec
