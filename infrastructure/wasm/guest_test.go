package wasm

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/ports"
	"github.com/reglet-dev/reglet-script/host/registry"
	"github.com/reglet-dev/reglet-script/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// Fixed guest memory layout of the test module.
const (
	describeAt = 1024
	logAt      = 2048
	progressAt = 3072
	responseAt = 4096
	inputAt    = 8192
)

const guestDescriptor = `{"name":"Doubler","version":"1.0.0","description":"doubles its level",` +
	`"inputs":[{"name":"level","type":"int32","default":1}],` +
	`"outputs":[{"name":"count","type":"int32"},{"name":"label","type":"string"}]}`

// guestModule assembles a plug-in module whose "execute" export logs one
// message, reports one progress update and returns response. "allocate"
// always hands out inputAt, so the request stays readable after the call.
func guestModule(response string) []byte {
	logMsg := `{"level":"warn","message":"guest says hi"}`
	progressMsg := `{"message":"halfway","percent":50,"level":"warning"}`

	var code bytes.Buffer
	code.WriteByte(0x42) // i64.const
	code.Write(sleb(int64(packPtrLen(logAt, uint32(len(logMsg))))))
	code.Write([]byte{0x10, 0x00}) // call log_message
	code.WriteByte(0x42)
	code.Write(sleb(int64(packPtrLen(progressAt, uint32(len(progressMsg))))))
	code.Write([]byte{0x10, 0x01}) // call report_progress
	code.WriteByte(0x42)
	code.Write(sleb(int64(packPtrLen(responseAt, uint32(len(response))))))

	types := vec(
		[]byte{0x60, 0x01, 0x7e, 0x00},             // (i64) -> ()
		[]byte{0x60, 0x01, 0x7f, 0x01, 0x7f},       // (i32) -> i32
		[]byte{0x60, 0x00, 0x01, 0x7e},             // () -> i64
		[]byte{0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e}, // (i32, i32) -> i64
	)
	imports := vec(
		cat(name("reglet_host"), name("log_message"), []byte{0x00, 0x00}),
		cat(name("reglet_host"), name("report_progress"), []byte{0x00, 0x00}),
	)
	funcs := vec([]byte{0x01}, []byte{0x02}, []byte{0x03})
	memory := vec([]byte{0x00, 0x01})
	exports := vec(
		cat(name("memory"), []byte{0x02, 0x00}),
		cat(name("allocate"), []byte{0x00, 0x02}),
		cat(name("describe"), []byte{0x00, 0x03}),
		cat(name("execute"), []byte{0x00, 0x04}),
	)
	bodies := vec(
		body(cat([]byte{0x41}, sleb(inputAt))),
		body(cat([]byte{0x42}, sleb(int64(packPtrLen(describeAt, uint32(len(guestDescriptor))))))),
		body(code.Bytes()),
	)
	data := vec(
		segment(describeAt, guestDescriptor),
		segment(logAt, logMsg),
		segment(progressAt, progressMsg),
		segment(responseAt, response),
	)

	return cat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(1, types),
		section(2, imports),
		section(3, funcs),
		section(5, memory),
		section(7, exports),
		section(10, bodies),
		section(11, data),
	)
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func cat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func name(s string) []byte {
	return cat(uleb(uint64(len(s))), []byte(s))
}

func vec(items ...[]byte) []byte {
	return cat(uleb(uint64(len(items))), cat(items...))
}

func section(id byte, content []byte) []byte {
	return cat([]byte{id}, uleb(uint64(len(content))), content)
}

// body wraps an instruction sequence as a function body without locals.
func body(instrs []byte) []byte {
	fn := cat([]byte{0x00}, instrs, []byte{0x0b})
	return cat(uleb(uint64(len(fn))), fn)
}

func segment(offset int64, payload string) []byte {
	return cat([]byte{0x00, 0x41}, sleb(offset), []byte{0x0b}, name(payload))
}

type GuestTestSuite struct {
	suite.Suite
	ctx     context.Context
	rt      *Runtime
	reg     *registry.Registry
	logs    bytes.Buffer
	created ports.Plugin
}

func (s *GuestTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.logs.Reset()
	logger := slog.New(slog.NewTextHandler(&s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rt, err := NewRuntime(s.ctx, WithLogger(logger))
	s.Require().NoError(err)
	s.rt = rt
	s.reg = registry.NewRegistry()
	s.created = nil
}

func (s *GuestTestSuite) TearDownTest() {
	if s.created != nil {
		_ = s.created.Close()
	}
	s.NoError(s.rt.Close(s.ctx))
}

func (s *GuestTestSuite) create(response string) ports.Plugin {
	desc, err := s.rt.Register(s.ctx, s.reg, guestModule(response))
	s.Require().NoError(err)
	s.Equal("Doubler", desc.Name)

	p, err := s.reg.Create(desc.Name)
	s.Require().NoError(err)
	s.created = p
	return p
}

func (s *GuestTestSuite) TestLoadReadsDescriptor() {
	m, err := s.rt.Load(s.ctx, guestModule(`{"success":true}`))
	s.Require().NoError(err)

	s.Equal("1.0.0", m.Descriptor().Version)
	pd := m.PluginDescriptor()
	s.Equal(entities.PluginKindWasm, pd.Kind)
	s.Equal("doubles its level", pd.Description)
}

func (s *GuestTestSuite) TestExecuteCoercesOutputs() {
	p := s.create(`{"success":true,"outputs":{"count":8,"label":"doubled"}}`)
	s.Require().True(p.(ports.ModeSetter).SetBatch())

	in, err := p.InputSpecification()
	s.Require().NoError(err)
	level, ok := entities.ValueAs[int32](in, "level")
	s.Require().True(ok)
	s.Equal(int32(1), level)
	s.Require().NoError(in.SetValue("level", int32(4)))

	out, err := p.OutputSpecification()
	s.Require().NoError(err)

	progress := &testutil.RecordingProgress{}
	ok, err = p.Execute(s.ctx, in, out, progress)
	s.Require().NoError(err)
	s.True(ok)

	count, ok := entities.ValueAs[int32](out, "count")
	s.Require().True(ok)
	s.Equal(int32(8), count)
	label, ok := entities.ValueAs[string](out, "label")
	s.Require().True(ok)
	s.Equal("doubled", label)

	s.Equal([]testutil.ProgressUpdate{{Message: "halfway", Percent: 50, Level: entities.ProgressWarning}}, progress.Updates())
	s.Contains(s.logs.String(), "level=WARN")
	s.Contains(s.logs.String(), "guest says hi")
	s.Contains(s.logs.String(), "plugin=Doubler")

	var req ExecuteRequest
	sent := s.guestRequest(p)
	s.Require().NoError(json.Unmarshal(sent, &req))
	s.True(req.Batch)
	s.Equal(map[string]any{"level": float64(4)}, req.Inputs)
}

func (s *GuestTestSuite) guestRequest(p ports.Plugin) []byte {
	inst := p.(*Plugin).instance
	raw, ok := inst.Memory().Read(inputAt, 256)
	s.Require().True(ok)
	end := bytes.IndexByte(raw, 0)
	s.Require().Positive(end)
	return raw[:end]
}

func (s *GuestTestSuite) TestExecuteReportsGuestFailure() {
	p := s.create(`{"success":false,"error":"level too high"}`)
	in, err := p.InputSpecification()
	s.Require().NoError(err)
	out, err := p.OutputSpecification()
	s.Require().NoError(err)

	ok, err := p.Execute(s.ctx, in, out, nil)
	s.False(ok)
	s.EqualError(err, "level too high")
	_, set := out.Get("count")
	s.True(set, "declared output stays present")
	_, has := entities.ValueAs[int32](out, "count")
	s.False(has)
}

func (s *GuestTestSuite) TestExecuteRejectsMistypedOutput() {
	p := s.create(`{"success":true,"outputs":{"count":"eight"}}`)
	in, _ := p.InputSpecification()
	out, _ := p.OutputSpecification()

	ok, err := p.Execute(s.ctx, in, out, nil)
	s.False(ok)
	s.ErrorContains(err, `output "count"`)
}

func (s *GuestTestSuite) TestCloseIsIdempotent() {
	p := s.create(`{"success":true}`)
	inst := p.(*Plugin).instance

	s.NoError(p.Close())
	s.NoError(p.Close())
	s.True(inst.IsClosed())
	s.created = nil
}

func (s *GuestTestSuite) TestDuplicateRegistrationFails() {
	s.reg = registry.NewRegistry(registry.WithStrictMode(true))
	bin := guestModule(`{"success":true}`)
	_, err := s.rt.Register(s.ctx, s.reg, bin)
	s.Require().NoError(err)
	_, err = s.rt.Register(s.ctx, s.reg, bin)
	s.Error(err)
	s.Equal([]string{"Doubler"}, s.reg.List())
}

func TestGuestTestSuite(t *testing.T) {
	suite.Run(t, new(GuestTestSuite))
}

func TestSleb(t *testing.T) {
	assert.Equal(t, []byte{0x00}, sleb(0))
	assert.Equal(t, []byte{0x7f}, sleb(-1))
	assert.Equal(t, []byte{0x80, 0xc0, 0x00}, sleb(inputAt))
	assert.Equal(t, []byte{0xc0, 0xbb, 0x78}, sleb(-123456))
	assert.Equal(t, []byte{0xe5, 0x8e, 0x26}, uleb(624485))
}
