// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

// Sync is the type of a synchronization scope.
// Values of this type describe where in the GPU pipeline
// an operation executes.
type Sync int

// Synchronization scopes.
const (
	SVertexShading Sync = 1 << iota
	SFragmentShading
	SComputeShading
	SColorOutput
	SDSOutput
	SCopy
	SAll
	SNone Sync = 0
)

// Access is the type of a memory access scope.
type Access int

// Memory access scopes.
const (
	AColorRead Access = 1 << iota
	AColorWrite
	ADSRead
	ADSWrite
	// Read as input (per-pixel) attachment.
	AInputRead
	AShaderRead
	AShaderWrite
	// Read from a constant (uniform) buffer.
	AConstRead
	ACopyRead
	ACopyWrite
	ANone Access = 0
)

// Layout is the type of an image layout.
type Layout int

// Image layouts.
const (
	LUndefined Layout = iota
	// LCommon supports both reads and writes from shaders.
	// It is the layout of storage images.
	LCommon
	LColorTarget
	LDSTarget
	LDSRead
	LShaderRead
	LCopySrc
	LCopyDst
	LPresent
)

// Barrier represents a synchronization barrier.
// It splits command execution in two halves, with the
// given scopes applying to commands recorded before
// (SyncBefore/AccessBefore) and after (SyncAfter/AccessAfter)
// the barrier itself.
type Barrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access
}

// Transition represents a layout transition on a
// specific image view.
// The contents of the image are discarded when
// LayoutBefore is LUndefined.
type Transition struct {
	Barrier

	LayoutBefore Layout
	LayoutAfter  Layout
	IView        ImageView
}

// Usage is a mask indicating valid uses for a resource.
type Usage int

// Usage flags for Buffer and Image.
const (
	// The resource can be read in shaders.
	UShaderRead Usage = 1 << iota
	// The resource can be written in shaders.
	UShaderWrite
	// The resource can provide constant data for shaders.
	// Valid only for Buffer.
	UShaderConst
	// The resource can be sampled in shaders.
	// Valid only for Image.
	UShaderSample
	// The resource can be used as render target.
	// Valid only for Image.
	URenderTarget
	// The resource can be the source of a copy or blit.
	UCopySrc
	// The resource can be the destination of a copy,
	// blit or clear.
	UCopyDst
)

// PixelFmt describes the format of a pixel.
type PixelFmt int

// Pixel formats.
const (
	// FUndefined is not a valid format for image creation.
	// The render graph resolves it to the swapchain's format.
	FUndefined PixelFmt = iota
	// Color, 8-bit channels.
	RGBA8un
	RGBA8sRGB
	BGRA8un
	BGRA8sRGB
	RG8un
	R8un
	// Color, 16-bit channels.
	RGBA16f
	RG16f
	R16f
	// Color, 32-bit channels.
	RGBA32f
	RG32f
	R32f
	// Depth/Stencil.
	D16un
	D32f
	S8ui
	D24unS8ui
	D32fS8ui
)

// HasDepth returns whether f has a depth aspect.
func (f PixelFmt) HasDepth() bool {
	switch f {
	case D16un, D32f, D24unS8ui, D32fS8ui:
		return true
	}
	return false
}

// HasStencil returns whether f has a stencil aspect.
func (f PixelFmt) HasStencil() bool {
	switch f {
	case S8ui, D24unS8ui, D32fS8ui:
		return true
	}
	return false
}

// IsDS returns whether f is a depth/stencil format.
func (f PixelFmt) IsDS() bool { return f.HasDepth() || f.HasStencil() }

// Dim3D is a three-dimensional size.
type Dim3D struct {
	Width, Height, Depth int
}

// Image is the interface that defines a GPU image.
type Image interface {
	Destroyer

	// NewView creates a new image view.
	// Image views represent a typed view of image storage.
	// All views created from a given image must be
	// destroyed before the image itself is destroyed.
	NewView(typ ViewType, layer, layers, level, levels int) (ImageView, error)
}

// ViewType is the type of an image view.
type ViewType int

// View types.
const (
	IView2D ViewType = iota
	IView2DArray
	IView3D
)

// ImageView is the interface that defines a typed view of
// an Image resource.
type ImageView interface {
	Destroyer
}

// Buffer is the interface that defines a GPU buffer.
// The size of the buffer is fixed. When a larger buffer
// is necessary, a new one must be created and the data
// must be copied explicitly.
type Buffer interface {
	Destroyer

	// Cap returns the capacity of the buffer in bytes,
	// which may be greater than the size requested during
	// buffer creation.
	// This value is immutable.
	Cap() int64
}
