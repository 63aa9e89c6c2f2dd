// Package rag 实现图增强的混合检索管线：
// 向量召回 → 关系图扩展 → 可选网络搜索 → 重排序 → 上下文组装。
//
// Chunk 与图边在摄取期创建，请求期只读；Candidate 与 Source
// 只在单次检索的生命周期内存在。
package rag
