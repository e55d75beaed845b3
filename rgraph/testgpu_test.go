// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rgraph

import (
	"gviegas/rgraph/driver"
)

// testGPU implements driver.GPU, recording every creation
// for inspection.
type testGPU struct {
	images  []*testImage
	buffers []*testBuffer
	cmds    []*testCmd
}

func (g *testGPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	c := &testCmd{}
	g.cmds = append(g.cmds, c)
	return c, nil
}

func (g *testGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels int, usg driver.Usage) (driver.Image, error) {
	m := &testImage{
		pf:     pf,
		size:   size,
		layers: layers,
		levels: levels,
		usg:    usg,
	}
	g.images = append(g.images, m)
	return m, nil
}

func (g *testGPU) NewBuffer(size int64, usg driver.Usage) (driver.Buffer, error) {
	b := &testBuffer{size: size, usg: usg}
	g.buffers = append(g.buffers, b)
	return b, nil
}

type testImage struct {
	pf        driver.PixelFmt
	size      driver.Dim3D
	layers    int
	levels    int
	usg       driver.Usage
	destroyed bool
}

func (m *testImage) NewView(typ driver.ViewType, layer, layers, level, levels int) (driver.ImageView, error) {
	return &testView{img: m, typ: typ}, nil
}

func (m *testImage) Destroy() { m.destroyed = true }

type testView struct {
	img       *testImage
	typ       driver.ViewType
	destroyed bool
}

func (v *testView) Destroy() { v.destroyed = true }

type testBuffer struct {
	size      int64
	usg       driver.Usage
	destroyed bool
}

func (b *testBuffer) Cap() int64 { return b.size }
func (b *testBuffer) Destroy()   { b.destroyed = true }

// testCmd implements driver.CmdBuffer, recording the kind
// of every command in sequence plus the arguments of
// synchronization commands.
type testCmd struct {
	begun       bool
	ended       bool
	ops         []string
	barriers    []driver.Barrier
	transitions []driver.Transition
}

func (c *testCmd) Begin() error {
	c.begun, c.ended = true, false
	return nil
}

func (c *testCmd) Barrier(b []driver.Barrier) {
	c.ops = append(c.ops, "barrier")
	c.barriers = append(c.barriers, b...)
}

func (c *testCmd) Transition(t []driver.Transition) {
	c.ops = append(c.ops, "transition")
	c.transitions = append(c.transitions, t...)
}

func (c *testCmd) ClearColor(iv driver.ImageView, value [4]float32) {
	c.ops = append(c.ops, "clearcolor")
}

func (c *testCmd) ClearDS(iv driver.ImageView, depth float32, stencil uint32) {
	c.ops = append(c.ops, "cleards")
}

func (c *testCmd) Blit(from, to driver.ImageView, fromSize, toSize driver.Dim3D) {
	c.ops = append(c.ops, "blit")
}

func (c *testCmd) End() error {
	c.ended = true
	return nil
}

func (c *testCmd) Reset() error {
	*c = testCmd{}
	return nil
}

func (c *testCmd) Destroy() {}

// failGPU fails image creation, for error propagation
// tests.
type failGPU struct{ testGPU }

func (g *failGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels int, usg driver.Usage) (driver.Image, error) {
	return nil, driver.ErrNoDeviceMemory
}

// passFunc adapts a function to PassImpl.
type passFunc func(cmd driver.CmdBuffer, pass *Pass)

func (f passFunc) Record(cmd driver.CmdBuffer, pass *Pass) { f(cmd, pass) }

// markImpl records the pass's name into the testCmd op
// sequence when its sub-stage executes.
func markImpl() PassImpl {
	return passFunc(func(cmd driver.CmdBuffer, pass *Pass) {
		c := cmd.(*testCmd)
		c.ops = append(c.ops, "pass:"+pass.Name())
	})
}

// clearImpl is a PassImpl requesting literal clears.
type clearImpl struct {
	PassImpl
	color    [4]float32
	depth    float32
	stencil  uint32
	hasColor bool
	hasDS    bool
}

func (c *clearImpl) ClearColorValue(i int) ([4]float32, bool) { return c.color, c.hasColor }
func (c *clearImpl) ClearDSValue() (float32, uint32, bool)    { return c.depth, c.stencil, c.hasDS }

// swapDim1280 is the swapchain description most tests
// resolve against.
var swapDim1280 = ResourceDimensions{
	Format: driver.BGRA8un,
	Width:  1280,
	Height: 768,
	Depth:  1,
}
