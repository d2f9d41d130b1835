package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/ports"
)

// CountingPlugin adds its int32 inputs a and b into output sum and counts
// how often it is released through Close.
type CountingPlugin struct {
	// Run replaces the default addition when set.
	Run func(ctx context.Context, in, out *entities.ArgumentList, progress ports.Progress) (bool, error)

	Releases   *atomic.Int32
	Name       string
	Executions atomic.Int32
	Batch      atomic.Bool
}

// Descriptor implements ports.Plugin.
func (p *CountingPlugin) Descriptor() entities.PluginDescriptor {
	return entities.PluginDescriptor{Name: p.Name, Version: "1.0.0", Kind: entities.PluginKindNative}
}

// InputSpecification implements ports.Plugin.
func (p *CountingPlugin) InputSpecification() (*entities.ArgumentList, error) {
	return entities.NewArgumentList().
		MustAdd("a", entities.TypeInt32, entities.WithDefault(int32(1))).
		MustAdd("b", entities.TypeInt32, entities.WithDefault(int32(0))), nil
}

// OutputSpecification implements ports.Plugin.
func (p *CountingPlugin) OutputSpecification() (*entities.ArgumentList, error) {
	return entities.NewArgumentList().MustAdd("sum", entities.TypeInt32), nil
}

// Execute implements ports.Plugin.
func (p *CountingPlugin) Execute(ctx context.Context, in, out *entities.ArgumentList, progress ports.Progress) (bool, error) {
	p.Executions.Add(1)
	if p.Run != nil {
		return p.Run(ctx, in, out, progress)
	}
	a, _ := entities.ValueAs[int32](in, "a")
	b, _ := entities.ValueAs[int32](in, "b")
	if err := out.SetValue("sum", a+b); err != nil {
		return false, err
	}
	return true, nil
}

// SetBatch implements ports.ModeSetter.
func (p *CountingPlugin) SetBatch() bool {
	p.Batch.Store(true)
	return true
}

// SetInteractive implements ports.ModeSetter.
func (p *CountingPlugin) SetInteractive() bool {
	p.Batch.Store(false)
	return true
}

// Close records one release.
func (p *CountingPlugin) Close() error {
	if p.Releases != nil {
		p.Releases.Add(1)
	}
	return nil
}

// CountingFactory returns a factory producing CountingPlugins that share
// the releases counter. Every created instance is appended to created when
// it is non-nil.
func CountingFactory(name string, releases *atomic.Int32, created *[]*CountingPlugin) ports.PluginFactory {
	var mu sync.Mutex
	return func() (ports.Plugin, error) {
		p := &CountingPlugin{Name: name, Releases: releases}
		if created != nil {
			mu.Lock()
			*created = append(*created, p)
			mu.Unlock()
		}
		return p, nil
	}
}

// Recorder collects messages delivered to a listener.
type Recorder struct {
	messages []string
	mu       sync.Mutex
}

// Listener returns a ports.Listener appending to the recorder.
func (r *Recorder) Listener() ports.Listener {
	return func(text string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.messages = append(r.messages, text)
	}
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// Reset drops all recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

// ProgressUpdate is one recorded progress call.
type ProgressUpdate struct {
	Message string
	Level   entities.ProgressLevel
	Percent int
}

// RecordingProgress implements ports.Progress by recording every update.
type RecordingProgress struct {
	updates []ProgressUpdate
	mu      sync.Mutex
}

// UpdateProgress implements ports.Progress.
func (p *RecordingProgress) UpdateProgress(message string, percent int, level entities.ProgressLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, ProgressUpdate{Message: message, Percent: percent, Level: level})
}

// Updates returns a copy of the recorded updates.
func (p *RecordingProgress) Updates() []ProgressUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ProgressUpdate(nil), p.updates...)
}
