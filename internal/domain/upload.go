package domain

// UploadPolicy per-instance upload settings bound into the instance's security token
type UploadPolicy struct {
	Category       string // category slug attached to uploads
	MaxSize        int64  // bytes; 0 = server default
	Enabled        bool
	ReviewRequired bool
	KeyRequired    bool
}

// UploadForm upload-image form fields (file handled separately)
type UploadForm struct {
	Instance    string `form:"instance" validate:"required,max=64"`
	Title       string `form:"title" validate:"max=255"`
	Alt         string `form:"alt" validate:"max=255"`
	Caption     string `form:"caption" validate:"max=500"`
	Description string `form:"description" validate:"max=5000"`
	UploadKey   string `form:"upload_key" validate:"max=128"`
	Category    string `form:"category" validate:"max=191"`
	Review      string `form:"review"`
	Honeypot    string `form:"io_website"`
	MaxSizeHint int64  `form:"max_size" validate:"gte=0"`
}

// UploadFile raw uploaded file
type UploadFile struct {
	Filename string
	Data     []byte
}

// UploadResult outcome of a stored upload
type UploadResult struct {
	Media   *Media
	Pending bool
}
