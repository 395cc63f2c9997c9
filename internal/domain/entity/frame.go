package entity

// FrameSource откуда пришёл кадр
type FrameSource string

const (
	SourceUpload   FrameSource = "upload"
	SourceCamera   FrameSource = "camera"
	SourceTelegram FrameSource = "telegram"
)

// Frame закодированное изображение (JPEG, PNG, WebP, GIF)
type Frame struct {
	Data   []byte
	Source FrameSource
}

// Empty сообщает, что кадр не содержит данных
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}
