package packet

import "errors"

// ErrUnboundStack is returned by Packet.Add when no binding links the
// current top header to the kind being pushed.
var ErrUnboundStack = errors.New("packet: no binding from current top to requested header")

// ErrAmbiguousBinding is returned when two registered bindings of equal
// specificity both match during Parse or Resolve.
var ErrAmbiguousBinding = errors.New("packet: ambiguous binding")
