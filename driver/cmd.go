// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

// CmdBuffer is the interface that defines a command buffer.
// The render graph records synchronization, clear and blit
// commands through this interface; pass implementations are
// expected to assert the concrete type of their backend to
// record draw or dispatch state.
// The usage is as follows: call Begin, record commands, call
// End and then submit the buffer through backend-specific
// means. A command buffer whose End call succeeded cannot be
// recorded into again until it is executed or reset.
type CmdBuffer interface {
	Destroyer

	// Begin prepares the command buffer for recording.
	Begin() error

	// Barrier inserts a number of global barriers
	// in the command buffer.
	Barrier(b []Barrier)

	// Transition inserts a number of image layout
	// transitions in the command buffer.
	Transition(t []Transition)

	// ClearColor fills every pixel of a color image view
	// with the given value.
	// The view must be in the LCopyDst layout.
	ClearColor(iv ImageView, value [4]float32)

	// ClearDS fills every pixel of a depth/stencil image
	// view with the given values.
	// The view must be in the LCopyDst layout.
	ClearDS(iv ImageView, depth float32, stencil uint32)

	// Blit copies the from view into the to view,
	// scaling with linear filtering when the given
	// extents differ.
	// from must be in the LCopySrc layout and to in
	// the LCopyDst layout.
	Blit(from, to ImageView, fromSize, toSize Dim3D)

	// End ends command recording and prepares the
	// command buffer for execution.
	// Upon failure, the command buffer is reset.
	End() error

	// Reset discards all recorded commands from the
	// command buffer.
	Reset() error
}
