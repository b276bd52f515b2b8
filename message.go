package main

const (
	CodeInvalidRequest  = "invalid_request"
	CodeInvalidImage    = "invalid_image"
	CodeProcessingError = "processing_error"

	MsgInvalidRequest = "The request body could not be read as an image upload."
	MsgNoFile         = "No image uploaded. Send the picture as the \"file\" field of a multipart form."
	MsgEmptyFile      = "The uploaded file is empty."
	MsgTooLarge       = "The uploaded file is too large."
	MsgInvalidImage   = "The uploaded file could not be read as an image. Supported formats are JPEG, PNG, GIF, BMP, TIFF and WebP."
	MsgProcessingFail = "Object detection failed for this image."
)
