package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"

	"sipcounter/internal/classify"
	"sipcounter/internal/sipmsg"
)

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// packetReader is implemented by both pcapgo.Reader and pcapgo.NgReader.
type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// ReadPcap decodes a pcap or pcapng stream and feeds every UDP or TCP
// payload that starts with a SIP start line to sink. Only the first SIP
// message of a TCP segment is counted.
func ReadPcap(ctx context.Context, r io.Reader, sink *Sink, log logrus.FieldLogger) error {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return fmt.Errorf("read pcap header: %w", err)
	}

	var pr packetReader
	if bytes.Equal(magic, pcapngMagic) {
		pr, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		pr, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return fmt.Errorf("open pcap: %w", err)
	}

	var packets, sip int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, _, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read packet %d: %w", packets+1, err)
		}
		packets++

		pkt := gopacket.NewPacket(data, pr.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		obs, ok := observationFromPacket(pkt)
		if !ok {
			continue
		}
		sip++
		sink.Observe(obs)
	}

	if log != nil {
		log.WithFields(logrus.Fields{"packets": packets, "sip": sip}).Debug("pcap input finished")
	}
	return nil
}

// observationFromPacket extracts IP endpoints, ports and the SIP message of
// a decoded packet. ok is false for anything that is not SIP over IP.
func observationFromPacket(pkt gopacket.Packet) (classify.Observation, bool) {
	var obs classify.Observation

	switch ip := pkt.NetworkLayer().(type) {
	case *layers.IPv4:
		obs.SrcHost, obs.DstHost = ip.SrcIP.String(), ip.DstIP.String()
	case *layers.IPv6:
		obs.SrcHost, obs.DstHost = ip.SrcIP.String(), ip.DstIP.String()
	default:
		return obs, false
	}

	var (
		payload []byte
		l4      string
	)
	switch tl := pkt.TransportLayer().(type) {
	case *layers.UDP:
		obs.SrcPort, obs.DstPort = fmt.Sprint(uint16(tl.SrcPort)), fmt.Sprint(uint16(tl.DstPort))
		payload, l4 = tl.Payload, "UDP"
	case *layers.TCP:
		obs.SrcPort, obs.DstPort = fmt.Sprint(uint16(tl.SrcPort)), fmt.Sprint(uint16(tl.DstPort))
		payload, l4 = tl.Payload, "TCP"
	default:
		return obs, false
	}

	if len(payload) == 0 || !sipmsg.LooksLikeSIP(payload) {
		return obs, false
	}
	msg, ok := sipmsg.Parse(string(payload))
	if !ok {
		return obs, false
	}
	obs.Message = msg
	if msg.Transport() == "" {
		obs.Proto = l4
	}
	return obs, true
}
