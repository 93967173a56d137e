// Package capture records EtherNet/IP exchanges to pcap files. Frames are
// wrapped in synthesized Ethernet/IPv4/TCP layers so standard tooling
// (Wireshark, tshark) dissects them as live traffic.
package capture

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var (
	clientIP  = []byte{192, 168, 100, 10}
	serverIP  = []byte{192, 168, 100, 20}
	clientMAC = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	serverMAC = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// Writer records exchanged frames into a pcap file.
type Writer struct {
	mu         sync.Mutex
	file       *os.File
	writer     *pcapgo.Writer
	clientPort uint16
	serverPort uint16
	clientSeq  uint32
	serverSeq  uint32
	packets    int
}

// NewWriter creates path and writes the pcap file header. serverPort is the
// device's TCP port (44818 for explicit messaging).
func NewWriter(path string, serverPort uint16) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create pcap: %w", err)
	}
	w := pcapgo.NewWriter(file)
	if err := w.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		file.Close()
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &Writer{
		file:       file,
		writer:     w,
		clientPort: 50000,
		serverPort: serverPort,
		clientSeq:  1,
		serverSeq:  1,
	}, nil
}

// RecordSend records a client-to-device frame.
func (w *Writer) RecordSend(frame []byte) { w.record(frame, true) }

// RecordRecv records a device-to-client frame.
func (w *Writer) RecordRecv(frame []byte) { w.record(frame, false) }

func (w *Writer) record(payload []byte, fromClient bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writer == nil {
		return
	}

	srcIP, dstIP := clientIP, serverIP
	srcMAC, dstMAC := clientMAC, serverMAC
	srcPort, dstPort := w.clientPort, w.serverPort
	seq, ack := w.clientSeq, w.serverSeq
	if !fromClient {
		srcIP, dstIP = dstIP, srcIP
		srcMAC, dstMAC = dstMAC, srcMAC
		srcPort, dstPort = dstPort, srcPort
		seq, ack = w.serverSeq, w.clientSeq
	}

	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		ACK:     true,
		PSH:     true,
		Seq:     seq,
		Ack:     ack,
	}
	_ = tcp.SetNetworkLayerForChecksum(ip)

	buffer := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buffer, opts, eth, ip, tcp, gopacket.Payload(payload)); err != nil {
		return
	}
	data := buffer.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := w.writer.WritePacket(ci, data); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write packet: %v\n", err)
		return
	}
	if fromClient {
		w.clientSeq += uint32(len(payload))
	} else {
		w.serverSeq += uint32(len(payload))
	}
	w.packets++
}

// PacketCount returns how many frames were recorded.
func (w *Writer) PacketCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.packets
}

// Close flushes and closes the file (idempotent).
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.writer = nil
	return err
}
