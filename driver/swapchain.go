// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

// SwapchainHandler is the interface that consumers of
// swapchain lifecycle events implement.
// There is no global event bus: whoever owns the swapchain
// registers handlers explicitly when wiring them to the
// device and must stop calling into a handler once it is
// torn down.
type SwapchainHandler interface {
	// SwapchainChanged reports that the swapchain was
	// created or recreated with the given format and
	// extent. Image views previously obtained from the
	// swapchain are no longer valid.
	SwapchainChanged(pf PixelFmt, dim Dim3D)

	// SwapchainDestroyed reports that the swapchain was
	// destroyed and no replacement exists yet.
	SwapchainDestroyed()
}
