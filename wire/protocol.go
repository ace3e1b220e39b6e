// Package wire defines the client/node TCP wire protocol: a stream of
// self-delimiting CBOR values, one message per value, with no extra framing
// layered on top. It mirrors the original Rust implementation's
// serde_cbor-over-TcpStream protocol byte for byte in shape (if not in
// exact encoding internals).
package wire

import (
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/scene"
	"golang.org/x/xerrors"
)

// DefaultPort is used when a configured host has no explicit port.
const DefaultPort = 2000

// WorkerInfo is the first message a node server writes on every accepted
// connection, before reading anything from the client.
type WorkerInfo struct {
	NumThreads uint64 `cbor:"num_threads"`
}

// RequestKind tags the variant held by a NetworkWorkerRequest.
type RequestKind string

const (
	RequestSetJob   RequestKind = "set_job"
	RequestWorkUnit RequestKind = "work_unit"
	RequestDone     RequestKind = "done"
)

// NetworkWorkerRequest is a tagged union over the three messages a network
// worker client sends to a node server: exactly one SetJob, then any number
// of WorkUnit, then exactly one Done.
type NetworkWorkerRequest struct {
	Kind RequestKind `cbor:"kind"`

	SetJob   *WireJob  `cbor:"set_job,omitempty"`
	WorkUnit *WorkUnit `cbor:"work_unit,omitempty"`
}

// WireJob is the wire representation of job.Job.
type WireJob struct {
	JobID           WireJobID  `cbor:"job_id"`
	SceneData       scene.Data `cbor:"scene_data"`
	SampleRoot      int        `cbor:"sample_root"`
	MaxTraceDepth   int        `cbor:"max_trace_depth"`
	RowsPerWorkUnit int        `cbor:"rows_per_work_unit"`
}

// WireJobID is the wire representation of job.ID.
type WireJobID struct {
	Nonce    uint64 `cbor:"nonce"`
	Sequence uint64 `cbor:"sequence"`
}

// WorkUnit is the wire representation of job.WorkUnit (job ID omitted: a
// connection carries exactly one job between SetJob and Done).
type WorkUnit struct {
	RowStart int `cbor:"row_start"`
	RowEnd   int `cbor:"row_end"`
}

// EventKind tags the variant held by a RenderEvent.
type EventKind string

const (
	EventRenderingStarted  EventKind = "rendering_started"
	EventImageInfo         EventKind = "image_info"
	EventRowsReady         EventKind = "rows_ready"
	EventRenderingFinished EventKind = "rendering_finished"
)

// RenderEvent is the wire representation of job.RenderEvent.
type RenderEvent struct {
	Kind EventKind `cbor:"kind"`

	WallTime  *SystemTime     `cbor:"wall_time,omitempty"`
	SceneName string          `cbor:"scene_name,omitempty"`
	Width     int             `cbor:"width,omitempty"`
	Height    int             `cbor:"height,omitempty"`
	Result    *WorkUnitResult `cbor:"result,omitempty"`
}

// WorkUnitResult is the wire representation of job.WorkUnitResult.
type WorkUnitResult struct {
	WorkUnit WorkUnit  `cbor:"work_unit"`
	Rows     [][]Color `cbor:"rows"`
}

// Color is the wire representation of scene.Color: three float64 channels.
type Color struct {
	R, G, B float64
}

// SystemTime is the wire representation of a wall-clock timestamp, matching
// the original's {secs_since_epoch, nanos} shape rather than a
// language-specific time encoding.
type SystemTime struct {
	Secs  int64  `cbor:"secs"`
	Nanos uint32 `cbor:"nanos"`
}

// ToSystemTime converts a time.Time into the wire's seconds+nanos shape.
func ToSystemTime(t time.Time) SystemTime {
	return SystemTime{Secs: t.Unix(), Nanos: uint32(t.Nanosecond())}
}

// Time converts a SystemTime back into a time.Time (UTC).
func (st SystemTime) Time() time.Time {
	return time.Unix(st.Secs, int64(st.Nanos)).UTC()
}

// Encoder writes successive, self-delimiting CBOR values to a stream.
type Encoder struct {
	enc *cbor.Encoder
}

// NewEncoder wraps w for writing wire messages.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: cbor.NewEncoder(w)}
}

// EncodeWorkerInfo writes a WorkerInfo message.
func (e *Encoder) EncodeWorkerInfo(info WorkerInfo) error {
	if err := e.enc.Encode(info); err != nil {
		return xerrors.Errorf("wire: encode WorkerInfo: %w", err)
	}
	return nil
}

// EncodeRequest writes a NetworkWorkerRequest message.
func (e *Encoder) EncodeRequest(req NetworkWorkerRequest) error {
	if err := e.enc.Encode(req); err != nil {
		return xerrors.Errorf("wire: encode NetworkWorkerRequest: %w", err)
	}
	return nil
}

// EncodeEvent writes a RenderEvent message.
func (e *Encoder) EncodeEvent(ev RenderEvent) error {
	if err := e.enc.Encode(ev); err != nil {
		return xerrors.Errorf("wire: encode RenderEvent: %w", err)
	}
	return nil
}

// Decoder reads successive CBOR values from a stream, one message at a time.
type Decoder struct {
	dec *cbor.Decoder
}

// NewDecoder wraps r for reading wire messages.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: cbor.NewDecoder(r)}
}

// DecodeWorkerInfo reads one WorkerInfo message.
func (d *Decoder) DecodeWorkerInfo() (WorkerInfo, error) {
	var info WorkerInfo
	if err := d.dec.Decode(&info); err != nil {
		return WorkerInfo{}, xerrors.Errorf("wire: decode WorkerInfo: %w", err)
	}
	return info, nil
}

// DecodeRequest reads one NetworkWorkerRequest message.
func (d *Decoder) DecodeRequest() (NetworkWorkerRequest, error) {
	var req NetworkWorkerRequest
	if err := d.dec.Decode(&req); err != nil {
		return NetworkWorkerRequest{}, xerrors.Errorf("wire: decode NetworkWorkerRequest: %w", err)
	}
	return req, nil
}

// DecodeEvent reads one RenderEvent message.
func (d *Decoder) DecodeEvent() (RenderEvent, error) {
	var ev RenderEvent
	if err := d.dec.Decode(&ev); err != nil {
		return RenderEvent{}, xerrors.Errorf("wire: decode RenderEvent: %w", err)
	}
	return ev, nil
}

// FromJob converts a job.Job into its wire representation.
func FromJob(j job.Job) WireJob {
	return WireJob{
		JobID:           WireJobID{Nonce: j.ID.Nonce, Sequence: j.ID.Sequence},
		SceneData:       j.SceneData,
		SampleRoot:      j.Config.SampleRoot,
		MaxTraceDepth:   j.Config.MaxTraceDepth,
		RowsPerWorkUnit: j.Config.RowsPerWorkUnit,
	}
}

// ToJob converts a wire WireJob back into a job.Job.
func (wj WireJob) ToJob() job.Job {
	return job.Job{
		ID:        job.ID{Nonce: wj.JobID.Nonce, Sequence: wj.JobID.Sequence},
		SceneData: wj.SceneData,
		Config: job.Configuration{
			SampleRoot:      wj.SampleRoot,
			MaxTraceDepth:   wj.MaxTraceDepth,
			RowsPerWorkUnit: wj.RowsPerWorkUnit,
		},
	}
}

// FromWorkUnit converts a job.WorkUnit into its wire representation.
func FromWorkUnit(u job.WorkUnit) WorkUnit {
	return WorkUnit{RowStart: u.RowStart, RowEnd: u.RowEnd}
}

// ToWorkUnit converts a wire WorkUnit back into a job.WorkUnit for the given
// job ID (the wire form omits it, since a connection carries one job).
func (wu WorkUnit) ToWorkUnit(id job.ID) job.WorkUnit {
	return job.WorkUnit{JobID: id, RowStart: wu.RowStart, RowEnd: wu.RowEnd}
}

// FromColor converts a scene.Color into its wire representation.
func FromColor(c scene.Color) Color {
	return Color{R: c.R, G: c.G, B: c.B}
}

// ToColor converts a wire Color back into a scene.Color.
func (c Color) ToColor() scene.Color {
	return scene.Color{R: c.R, G: c.G, B: c.B}
}

// FromWorkUnitResult converts a job.WorkUnitResult into its wire
// representation.
func FromWorkUnitResult(r job.WorkUnitResult) WorkUnitResult {
	rows := make([][]Color, len(r.Rows))
	for i, row := range r.Rows {
		wireRow := make([]Color, len(row))
		for x, px := range row {
			wireRow[x] = FromColor(px)
		}
		rows[i] = wireRow
	}
	return WorkUnitResult{WorkUnit: FromWorkUnit(r.WorkUnit), Rows: rows}
}

// ToWorkUnitResult converts a wire WorkUnitResult back into a
// job.WorkUnitResult for the given job ID.
func (r WorkUnitResult) ToWorkUnitResult(id job.ID) job.WorkUnitResult {
	rows := make([][]scene.Color, len(r.Rows))
	for i, row := range r.Rows {
		out := make([]scene.Color, len(row))
		for x, px := range row {
			out[x] = px.ToColor()
		}
		rows[i] = out
	}
	return job.WorkUnitResult{WorkUnit: r.WorkUnit.ToWorkUnit(id), Rows: rows}
}

// FromRenderEvent converts a job.RenderEvent into its wire representation.
// The job ID is carried out-of-band by the connection (it matches SetJob),
// so it is not encoded here.
func FromRenderEvent(ev job.RenderEvent) RenderEvent {
	out := RenderEvent{}
	switch ev.Kind {
	case job.EventImageInfo:
		out.Kind = EventImageInfo
		out.SceneName = ev.SceneName
		out.Width = ev.Width
		out.Height = ev.Height
	case job.EventRenderingStarted:
		out.Kind = EventRenderingStarted
		wt := ToSystemTime(ev.WallTime)
		out.WallTime = &wt
	case job.EventRowsReady:
		out.Kind = EventRowsReady
		r := FromWorkUnitResult(ev.Result)
		out.Result = &r
	case job.EventRenderingFinished:
		out.Kind = EventRenderingFinished
		wt := ToSystemTime(ev.WallTime)
		out.WallTime = &wt
	}
	return out
}

// ToRenderEvent converts a wire RenderEvent back into a job.RenderEvent for
// the given job ID.
func (ev RenderEvent) ToRenderEvent(id job.ID) (job.RenderEvent, error) {
	switch ev.Kind {
	case EventImageInfo:
		return job.RenderEvent{Kind: job.EventImageInfo, JobID: id, SceneName: ev.SceneName, Width: ev.Width, Height: ev.Height}, nil
	case EventRenderingStarted:
		if ev.WallTime == nil {
			return job.RenderEvent{}, xerrors.Errorf("wire: RenderingStarted missing wall_time")
		}
		return job.RenderEvent{Kind: job.EventRenderingStarted, JobID: id, WallTime: ev.WallTime.Time()}, nil
	case EventRowsReady:
		if ev.Result == nil {
			return job.RenderEvent{}, xerrors.Errorf("wire: RowsReady missing result")
		}
		return job.RenderEvent{Kind: job.EventRowsReady, JobID: id, Result: ev.Result.ToWorkUnitResult(id)}, nil
	case EventRenderingFinished:
		if ev.WallTime == nil {
			return job.RenderEvent{}, xerrors.Errorf("wire: RenderingFinished missing wall_time")
		}
		return job.RenderEvent{Kind: job.EventRenderingFinished, JobID: id, WallTime: ev.WallTime.Time()}, nil
	default:
		return job.RenderEvent{}, xerrors.Errorf("wire: unknown event kind %q", ev.Kind)
	}
}
