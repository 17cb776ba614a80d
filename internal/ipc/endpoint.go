package ipc

import "floatrans/internal/userutil"

// currentUsername is a test seam.
var currentUsername = userutil.CurrentUsername
