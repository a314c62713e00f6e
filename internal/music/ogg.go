package music

import (
	"bufio"
	"io"
)

const oggReadBuffer = 64 * 1024

type oggPage struct {
	isHeader bool
	packets  [][]byte
}

// oggReader splits an Ogg/Opus byte stream into Opus packets.
type oggReader struct {
	r *bufio.Reader
}

func newOggReader(r io.Reader) *oggReader {
	return &oggReader{r: bufio.NewReaderSize(r, oggReadBuffer)}
}

// ReadPage returns the next page. OpusHead/OpusTags pages are flagged as
// headers and carry no audio.
func (o *oggReader) ReadPage() (*oggPage, error) {
	if err := o.syncToPage(); err != nil {
		return nil, err
	}

	// capture pattern consumed; 23 header bytes remain
	header := make([]byte, 23)
	if _, err := io.ReadFull(o.r, header); err != nil {
		return nil, err
	}

	headerType := header[1]
	segments := header[22]

	segmentTable := make([]byte, segments)
	if _, err := io.ReadFull(o.r, segmentTable); err != nil {
		return nil, err
	}

	size := 0
	for _, seg := range segmentTable {
		size += int(seg)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(o.r, data); err != nil {
		return nil, err
	}

	isHeader := headerType&0x02 != 0
	if len(data) >= 8 {
		magic := string(data[:8])
		if magic == "OpusHead" || magic == "OpusTags" {
			isHeader = true
		}
	}

	return &oggPage{
		isHeader: isHeader,
		packets:  splitOggPackets(segmentTable, data),
	}, nil
}

func (o *oggReader) syncToPage() error {
	for {
		b, err := o.r.ReadByte()
		if err != nil {
			return err
		}
		if b != 'O' {
			continue
		}

		peek, err := o.r.Peek(3)
		if err != nil {
			return err
		}
		if string(peek) == "ggS" {
			_, err := o.r.Discard(3)
			return err
		}
	}
}

// splitOggPackets joins lacing segments into packets; a segment shorter than
// 255 bytes terminates a packet.
func splitOggPackets(segmentTable []byte, data []byte) [][]byte {
	var packets [][]byte
	var current []byte
	offset := 0

	for _, seg := range segmentTable {
		size := int(seg)
		if offset+size > len(data) {
			break
		}

		current = append(current, data[offset:offset+size]...)
		offset += size

		if seg < 255 && len(current) > 0 {
			packet := make([]byte, len(current))
			copy(packet, current)
			packets = append(packets, packet)
			current = current[:0]
		}
	}

	if len(current) > 0 {
		packet := make([]byte, len(current))
		copy(packet, current)
		packets = append(packets, packet)
	}

	return packets
}
