package animation

// ControllerBuilderOption is a functional option for configuring a Controller via NewController.
// Options that reference clips return an error when the clip does not exist.
type ControllerBuilderOption func(*controller) error

// WithClip starts the controller on a clip.
//
// Parameters:
//   - clip: index into the mesh's animations, or BindPose
//   - loop: whether playback wraps at the end of the clip
//
// Returns:
//   - ControllerBuilderOption: a function that selects the starting clip
func WithClip(clip int, loop bool) ControllerBuilderOption {
	return func(c *controller) error {
		if err := c.checkClip(clip); err != nil {
			return err
		}
		c.clipIndex = clip
		c.loop = loop
		return nil
	}
}

// WithClipName starts the controller on the clip with the given name.
//
// Parameters:
//   - name: the clip name
//   - loop: whether playback wraps at the end of the clip
//
// Returns:
//   - ControllerBuilderOption: a function that selects the starting clip
func WithClipName(name string, loop bool) ControllerBuilderOption {
	return func(c *controller) error {
		idx := c.mesh.AnimationIndex(name)
		if idx < 0 {
			return ErrClipNotFound
		}
		c.clipIndex = idx
		c.loop = loop
		return nil
	}
}

// WithSpeed sets the initial playback rate multiplier.
//
// Parameters:
//   - speed: the speed
//
// Returns:
//   - ControllerBuilderOption: a function that sets the speed
func WithSpeed(speed float32) ControllerBuilderOption {
	return func(c *controller) error {
		c.speed = speed
		return nil
	}
}

// WithCamera attaches a view-projection source such as a camera.Camera.
//
// Parameters:
//   - cam: the view-projection source
//
// Returns:
//   - ControllerBuilderOption: a function that attaches the camera
func WithCamera(cam ViewProjectionSource) ControllerBuilderOption {
	return func(c *controller) error {
		c.camera = cam
		return nil
	}
}

// WithViewProjection sets the explicit view-projection matrix used when no camera is attached.
//
// Parameters:
//   - m: the column-major matrix
//
// Returns:
//   - ControllerBuilderOption: a function that sets the matrix
func WithViewProjection(m [16]float32) ControllerBuilderOption {
	return func(c *controller) error {
		c.viewProj = m
		return nil
	}
}
