package deps

// MediaRequirements lists the transcoding binaries used for probing uploads
// and producing trim/merge derivatives.
func MediaRequirements(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Cuts and concatenates clips",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobeBinary,
			Description: "Measures clip duration",
		},
	}
}
