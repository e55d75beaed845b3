// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package driver defines the GPU capabilities that the render
// graph consumes.
// It is a narrow slice of a device abstraction: creation of
// image and buffer resources, and recording of synchronization,
// clear and blit commands into a command stream. Submission,
// pipelines and draw/dispatch state belong to the surrounding
// engine and are not modeled here.
package driver

import "errors"

// ErrNoDeviceMemory means that device memory could not be
// allocated. GPU implementations return it, possibly
// wrapped, when NewImage or NewBuffer fails for lack of
// memory; the caller may free resources and retry.
var ErrNoDeviceMemory = errors.New("driver: out of device memory")

// ErrFatal means that the implementation is in an
// unrecoverable state. Any method of GPU or of its created
// resources may return it, possibly wrapped; everything
// created from the GPU must be destroyed.
var ErrFatal = errors.New("driver: fatal error")

// GPU is the resource-creation capability of a device.
// Every creation method may be called regardless of what
// else was created before, and created resources remain
// valid until their Destroy method is called.
type GPU interface {
	// NewCmdBuffer creates a new command buffer.
	NewCmdBuffer() (CmdBuffer, error)

	// NewImage creates a new image.
	// layers and levels must be greater than zero and
	// size must describe a non-empty extent.
	NewImage(pf PixelFmt, size Dim3D, layers, levels int, usg Usage) (Image, error)

	// NewBuffer creates a new buffer of at least size bytes.
	NewBuffer(size int64, usg Usage) (Buffer, error)
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may allocate external
// memory that is not managed by GC, so Destroy must be
// called explicitly to ensure such memory is deallocated.
type Destroyer interface {
	Destroy()
}
