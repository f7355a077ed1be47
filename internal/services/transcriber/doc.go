// Package transcriber wraps the external speech transcription tool
// (transcribe_speech.py) invoked as a python subprocess with Hydra-style
// key=value arguments. It selects between model_path and pretrained_name
// based on the model identifier and streams the tool's output through to
// the driver's stdout/stderr.
package transcriber
