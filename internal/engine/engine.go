package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"packetgen/packet"
	"packetgen/pcapng"

	"packetgen/internal/capture"
	"packetgen/internal/flow"
	"packetgen/internal/models"
	"packetgen/internal/parser"
	"packetgen/internal/stream"
)

// Client represents a connected WebSocket client that receives packets.
type Client interface {
	SendMessage(msg models.WSMessage) error
}

// Engine manages capture sessions and broadcasts packets to clients.
type Engine struct {
	mu          sync.Mutex
	clients     map[Client]bool
	liveCapture *capture.LiveCapture
	stopCh      chan struct{}
	capturing   bool
	pktCount    int
	startTime   time.Time

	reg         *packet.Bindings
	flowTracker *flow.Tracker
	streamMgr   *stream.Manager
}

// New creates a new Engine.
func New() *Engine {
	e := &Engine{
		clients:     make(map[Client]bool),
		reg:         packet.DefaultBindings,
		flowTracker: flow.NewTracker(),
	}
	e.streamMgr = stream.NewManager(e)
	e.streamMgr.Start()
	return e
}

// RegisterClient adds a client to receive packet broadcasts.
func (e *Engine) RegisterClient(c Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clients[c] = true
}

// UnregisterClient removes a client.
func (e *Engine) UnregisterClient(c Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.clients, c)
}

// GetInterfaces returns available network interfaces.
func (e *Engine) GetInterfaces() ([]models.InterfaceInfo, error) {
	ifaces, err := capture.ListInterfaces()
	if err != nil {
		return nil, err
	}
	var out []models.InterfaceInfo
	for _, i := range ifaces {
		out = append(out, models.InterfaceInfo{
			Name:        i.Name,
			Description: i.Description,
			Addresses:   i.Addresses,
		})
	}
	return out, nil
}

// GetFlows returns a snapshot of every tracked flow.
func (e *Engine) GetFlows() []*flow.Flow {
	return e.flowTracker.GetFlows()
}

// GetStreamData returns the reassembled data for a TCP stream.
func (e *Engine) GetStreamData(id uint64) *stream.StreamDataResponse {
	return e.streamMgr.GetStreamData(id)
}

// BroadcastStreamEvent implements stream.Broadcaster, forwarding reassembly
// events to every registered client the same way captured packets are.
func (e *Engine) BroadcastStreamEvent(eventType string, payload json.RawMessage) {
	e.broadcast(models.WSMessage{Type: eventType, Payload: payload})
}

// StartCapture begins a live capture on the given interface.
func (e *Engine) StartCapture(req models.StartCaptureRequest) error {
	e.mu.Lock()
	if e.capturing {
		e.mu.Unlock()
		return fmt.Errorf("capture already running")
	}
	e.mu.Unlock()

	lc, err := capture.NewLiveCapture(req.Interface, req.BPFFilter, req.SnapLen)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.liveCapture = lc
	e.capturing = true
	e.pktCount = 0
	e.startTime = time.Now()
	e.stopCh = make(chan struct{})
	e.mu.Unlock()

	payload, _ := json.Marshal(map[string]string{"interfaceName": req.Interface})
	e.broadcast(models.WSMessage{Type: "capture_started", Payload: payload})

	go e.captureLoop(lc, lc.LinkType(), e.stopCh)

	return nil
}

// StopCapture stops the active capture.
func (e *Engine) StopCapture() {
	e.mu.Lock()
	if !e.capturing {
		e.mu.Unlock()
		return
	}
	e.capturing = false
	stopCh := e.stopCh
	lc := e.liveCapture
	e.mu.Unlock()

	// Broadcast immediately so clients get instant feedback
	e.broadcast(models.WSMessage{Type: "capture_stopped"})

	// Then clean up — handle.Close() may block briefly until the
	// pending pcap read returns, but the client already knows we stopped.
	close(stopCh)
	lc.Close()
}

// LoadPcapFile reads a pcap (or PCAP-NG) file and streams packets to all
// clients with pacing.
func (e *Engine) LoadPcapFile(path string) error {
	reader, err := capture.NewPcapReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	e.mu.Lock()
	e.pktCount = 0
	e.startTime = time.Time{}
	e.mu.Unlock()

	linkType := reader.LinkType()
	var firstTS time.Time
	batch := 0
	for {
		data, ci, err := reader.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if firstTS.IsZero() {
			firstTS = ci.Timestamp
		}

		e.handleFrame(data, ci, linkType, firstTS)

		batch++
		if batch >= 200 {
			batch = 0
			time.Sleep(5 * time.Millisecond)
		}
	}

	return nil
}

func (e *Engine) captureLoop(lc *capture.LiveCapture, linkType uint16, stopCh chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		data, ci, err := lc.ReadFrame()
		if err != nil {
			if capture.IsTimeout(err) {
				continue
			}
			select {
			case <-stopCh:
				return
			default:
			}
			log.Printf("Packet read error: %v", err)
			continue
		}

		e.mu.Lock()
		startTime := e.startTime
		e.mu.Unlock()

		e.handleFrame(data, ci, linkType, startTime)
	}
}

// handleFrame parses one captured frame's bytes, tracks its flow and TCP
// stream membership, and broadcasts the resulting PacketInfo.
func (e *Engine) handleFrame(data []byte, ci gopacket.CaptureInfo, linkType uint16, startTime time.Time) {
	pkt, err := pcapng.ParseFrame(e.reg, data, linkType)
	if err != nil {
		return
	}

	e.mu.Lock()
	e.pktCount++
	num := e.pktCount
	e.mu.Unlock()

	tuple := parser.ExtractFlowTuple(pkt)

	var flowID uint64
	if tuple.Valid {
		flowID, _ = e.flowTracker.Track(tuple.SrcIP, tuple.DstIP, tuple.SrcPort, tuple.DstPort, tuple.Protocol, ci.Length, tuple.Flags)
	}

	var streamID uint64
	if tuple.Protocol == "TCP" {
		streamID = e.feedStream(data, linkType)
	}

	info := parser.Parse(pkt, data, ci.Length, num, ci.Timestamp, startTime)
	info.FlowID = flowID
	info.StreamID = streamID

	payload, _ := json.Marshal(info)
	e.broadcast(models.WSMessage{Type: "packet", Payload: payload})
}

// feedStream decodes one gopacket.Packet purely to bridge this frame into
// the TCP reassembler, whose tcpassembly API speaks gopacket.Flow rather
// than our own header framework.
func (e *Engine) feedStream(data []byte, linkType uint16) uint64 {
	gp := gopacket.NewPacket(data, layers.LinkType(linkType), gopacket.NoCopy)
	e.streamMgr.Feed(gp)

	nl := gp.NetworkLayer()
	tl := gp.TransportLayer()
	if nl == nil || tl == nil {
		return 0
	}
	return e.streamMgr.GetStreamID(nl.NetworkFlow(), tl.TransportFlow())
}

func (e *Engine) broadcast(msg models.WSMessage) {
	e.mu.Lock()
	clients := make([]Client, 0, len(e.clients))
	for c := range e.clients {
		clients = append(clients, c)
	}
	e.mu.Unlock()

	for _, c := range clients {
		c.SendMessage(msg)
	}
}
