/*
# 概述

包 cache 提供合成结果（synthesis）的多级缓存。

合成是整个引擎中唯一值得缓存的补全调用：它以低温度总结一份已经
定稿的成绩单，输入完全确定，重复执行代价高而收益为零。对话轮次
本身带有对抗性随机采样，不在缓存范围内。

# 缓存层级

  - L1 本地 LRU：双向链表 + 哈希表，O(1) 读写，进程内共享
  - L2 Redis：跨进程共享，可选，未配置时自动降级为仅 L1

# 缓存键

Key 函数对话题、模式、合成模型与逐字成绩单做 SHA-256，
任何一个轮次内容变化都会产生新键。
*/
package cache
