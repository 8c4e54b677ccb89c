package imaging

import "fmt"

// DecodeError reports that a byte stream is not a readable image container.
type DecodeError struct {
	// Op is the operation that needed the image ("probe", "decode").
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s image: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RegionError reports a crop rectangle that is invalid or resolves to zero area.
type RegionError struct {
	Region Region
	Reason string
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("invalid region {x:%g y:%g w:%g h:%g}: %s",
		e.Region.X, e.Region.Y, e.Region.Width, e.Region.Height, e.Reason)
}
