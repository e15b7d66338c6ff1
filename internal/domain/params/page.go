package params

// Page 分页参数
// Page从1开始；Page和PageSize都为0时返回全量结果。
type Page struct {
	Page      int  `json:"page" query:"page"`
	PageSize  int  `json:"page_size" query:"page_size"`
	NeedTotal bool `json:"need_total" query:"need_total"`
}
