package i18n

// DefaultMessages returns built-in translations for all supported locales.
// These can be overridden by loading JSON files from a directory.
func DefaultMessages() map[Locale]map[string]string {
	return map[Locale]map[string]string{
		LocaleEn: enMessages,
		LocaleKo: koMessages,
		LocaleJa: jaMessages,
	}
}

var enMessages = map[string]string{
	// Gallery rendering
	"gallery.title":        "Gallery",
	"gallery.empty":        "No images found.",
	"gallery.filter_all":   "All",
	"gallery.load_more":    "Load more",
	"gallery.loading":      "Loading...",
	"gallery.search_label": "Search images",
	"gallery.close":        "Close",
	"gallery.alt_label":    "Alt text:",
	"gallery.copy_alt":     "Copy alt text",
	"gallery.download":     "Download image",

	// Live region
	"status.loaded.one":         "%d image loaded.",
	"status.loaded.other":       "%d images loaded.",
	"status.no_more":            "No more images to load.",
	"status.load_error":         "Error loading images.",
	"status.search_all.one":     "Showing all %d image.",
	"status.search_all.other":   "Showing all %d images.",
	"status.search_match.one":   "%d image matches your search.",
	"status.search_match.other": "%d images match your search.",
	"status.search_error":       "Error searching images.",
	"status.filter.one":         "%d image shown.",
	"status.filter.other":       "%d images shown.",
	"status.copy_ok":            "Alt text copied to clipboard.",
	"status.copy_failed":        "Could not copy alt text.",

	// Upload
	"upload.no_file":      "Please choose an image to upload.",
	"upload.pending":      "Thanks! Your image was uploaded and is awaiting review.",
	"upload.accepted":     "Your image was uploaded.",
	"upload.error":        "Upload failed. Please try again.",
	"upload.too_large":    "The file is too large (max %d MB).",
	"upload.bad_type":     "This file type is not allowed.",
	"upload.key_mismatch": "The upload key is not valid.",
	"upload.disabled":     "Uploads are not enabled for this gallery.",
	"upload.submit":       "Upload",

	// Errors
	"error.rejected":          "Security check failed. Please reload the page.",
	"error.too_many_requests": "Too many uploads. Please try again in %d seconds.",
	"error.bad_request":       "Invalid request.",
	"error.internal":          "Something went wrong.",
}

var koMessages = map[string]string{
	"gallery.title":        "갤러리",
	"gallery.empty":        "이미지가 없습니다.",
	"gallery.filter_all":   "전체",
	"gallery.load_more":    "더 보기",
	"gallery.loading":      "불러오는 중...",
	"gallery.search_label": "이미지 검색",
	"gallery.close":        "닫기",
	"gallery.alt_label":    "대체 텍스트:",
	"gallery.copy_alt":     "대체 텍스트 복사",
	"gallery.download":     "이미지 다운로드",

	"status.loaded.one":         "이미지 %d개를 불러왔습니다.",
	"status.loaded.other":       "이미지 %d개를 불러왔습니다.",
	"status.no_more":            "더 불러올 이미지가 없습니다.",
	"status.load_error":         "이미지를 불러오지 못했습니다.",
	"status.search_all.one":     "전체 이미지 %d개를 표시합니다.",
	"status.search_all.other":   "전체 이미지 %d개를 표시합니다.",
	"status.search_match.one":   "검색 결과 %d개",
	"status.search_match.other": "검색 결과 %d개",
	"status.search_error":       "검색 중 오류가 발생했습니다.",
	"status.filter.one":         "이미지 %d개 표시 중",
	"status.filter.other":       "이미지 %d개 표시 중",
	"status.copy_ok":            "대체 텍스트를 복사했습니다.",
	"status.copy_failed":        "대체 텍스트를 복사하지 못했습니다.",

	"upload.no_file":      "업로드할 이미지를 선택해주세요.",
	"upload.pending":      "업로드되었습니다. 검토 후 공개됩니다.",
	"upload.accepted":     "업로드되었습니다.",
	"upload.error":        "업로드에 실패했습니다. 다시 시도해주세요.",
	"upload.too_large":    "파일 크기가 제한을 초과했습니다 (최대 %dMB).",
	"upload.bad_type":     "허용되지 않는 파일 형식입니다.",
	"upload.key_mismatch": "업로드 키가 올바르지 않습니다.",
	"upload.disabled":     "이 갤러리는 업로드를 허용하지 않습니다.",
	"upload.submit":       "업로드",

	"error.rejected":          "보안 검증에 실패했습니다. 페이지를 새로고침해주세요.",
	"error.too_many_requests": "업로드가 너무 많습니다. %d초 후 다시 시도해주세요.",
	"error.bad_request":       "잘못된 요청입니다.",
	"error.internal":          "서버 내부 오류가 발생했습니다.",
}

var jaMessages = map[string]string{
	"gallery.title":        "ギャラリー",
	"gallery.empty":        "画像が見つかりません。",
	"gallery.filter_all":   "すべて",
	"gallery.load_more":    "もっと見る",
	"gallery.loading":      "読み込み中...",
	"gallery.search_label": "画像を検索",
	"gallery.close":        "閉じる",
	"gallery.alt_label":    "代替テキスト:",
	"gallery.copy_alt":     "代替テキストをコピー",
	"gallery.download":     "画像をダウンロード",

	"status.loaded.one":         "%d件の画像を読み込みました。",
	"status.loaded.other":       "%d件の画像を読み込みました。",
	"status.no_more":            "これ以上画像はありません。",
	"status.load_error":         "画像の読み込みに失敗しました。",
	"status.search_all.one":     "全%d件の画像を表示しています。",
	"status.search_all.other":   "全%d件の画像を表示しています。",
	"status.search_match.one":   "%d件が検索に一致しました。",
	"status.search_match.other": "%d件が検索に一致しました。",
	"status.search_error":       "検索中にエラーが発生しました。",
	"status.filter.one":         "%d件表示中",
	"status.filter.other":       "%d件表示中",
	"status.copy_ok":            "代替テキストをコピーしました。",
	"status.copy_failed":        "代替テキストをコピーできませんでした。",

	"upload.no_file":      "アップロードする画像を選択してください。",
	"upload.pending":      "アップロードしました。審査後に公開されます。",
	"upload.accepted":     "アップロードしました。",
	"upload.error":        "アップロードに失敗しました。もう一度お試しください。",
	"upload.too_large":    "ファイルサイズが大きすぎます（最大%dMB）。",
	"upload.bad_type":     "このファイル形式は許可されていません。",
	"upload.key_mismatch": "アップロードキーが正しくありません。",
	"upload.disabled":     "このギャラリーではアップロードできません。",
	"upload.submit":       "アップロード",

	"error.rejected":          "セキュリティ確認に失敗しました。ページを再読み込みしてください。",
	"error.too_many_requests": "アップロードが多すぎます。%d秒後に再試行してください。",
	"error.bad_request":       "不正なリクエストです。",
	"error.internal":          "サーバー内部エラーが発生しました。",
}
